package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStoreCall(t *testing.T) {
	before := testutil.ToFloat64(StoreErrors.WithLabelValues("list", "devices"))

	RecordStoreCall("list", "devices", 5*time.Millisecond, nil)
	RecordStoreCall("list", "devices", 5*time.Millisecond, errors.New("connection refused"))

	assert.Equal(t, before+1, testutil.ToFloat64(StoreErrors.WithLabelValues("list", "devices")))
}

func TestRecordFallback(t *testing.T) {
	before := testutil.ToFloat64(FallbackServed.WithLabelValues("devices", ReasonNotConfigured))
	RecordFallback("devices", ReasonNotConfigured)
	assert.Equal(t, before+1, testutil.ToFloat64(FallbackServed.WithLabelValues("devices", ReasonNotConfigured)))
}

func TestRecordUpload(t *testing.T) {
	bytesBefore := testutil.ToFloat64(PhotoUploadBytes)
	RecordUpload("stored", 2048)
	RecordUpload("rejected", 0)
	assert.Equal(t, bytesBefore+2048, testutil.ToFloat64(PhotoUploadBytes))
}

func TestRecordDispatch(t *testing.T) {
	before := testutil.ToFloat64(ResponsesDispatched.WithLabelValues("false"))
	RecordDispatch(false)
	assert.Equal(t, before+1, testutil.ToFloat64(ResponsesDispatched.WithLabelValues("false")))
}

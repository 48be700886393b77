package mapview

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/metrics"
	"github.com/wildwatch/wildwatch-server/internal/models"
)

// Errors
var (
	ErrNotMounted = errors.New("map surface not mounted")
	ErrDestroyed  = errors.New("map surface destroyed")
)

// Surface is a drawing surface that holds markers by key
type Surface interface {
	AddMarker(m Marker) error
	UpdateMarker(m Marker) error
	RemoveMarker(key string) error
	Destroy() error
}

// Stats counts what one reconciliation did
type Stats struct {
	Added     int
	Updated   int
	Removed   int
	Unchanged int
}

// Reconciler owns one Surface for its whole life and applies collection
// changes to it as per-key adds, in-place updates and removals.
type Reconciler struct {
	mu         sync.Mutex
	newSurface func() (Surface, error)
	surface    Surface
	markers    map[string]Marker
	destroyed  bool
}

// NewReconciler creates a reconciler. newSurface is called exactly once, by Mount.
func NewReconciler(newSurface func() (Surface, error)) *Reconciler {
	return &Reconciler{newSurface: newSurface, markers: make(map[string]Marker)}
}

// Mount creates the surface. Mounting again is a no-op.
func (r *Reconciler) Mount() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return ErrDestroyed
	}
	if r.surface != nil {
		return nil
	}

	s, err := r.newSurface()
	if err != nil {
		return fmt.Errorf("create map surface: %w", err)
	}
	r.surface = s
	return nil
}

// Reconcile brings the surface in line with devices and alerts. When an
// id appears twice in a collection the later record wins.
func (r *Reconciler) Reconcile(devices []models.Device, alerts []models.Alert) (Stats, error) {
	desired := make(map[string]Marker, len(devices)+len(alerts))
	order := make([]string, 0, len(devices)+len(alerts))
	put := func(m Marker) {
		if _, seen := desired[m.Key]; !seen {
			order = append(order, m.Key)
		}
		desired[m.Key] = m
	}
	for _, d := range devices {
		put(DeviceMarker(d))
	}
	for _, a := range alerts {
		put(AlertMarker(a))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var stats Stats
	if r.destroyed {
		return stats, ErrDestroyed
	}
	if r.surface == nil {
		return stats, ErrNotMounted
	}

	stale := make([]string, 0)
	for key := range r.markers {
		if _, keep := desired[key]; !keep {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	for _, key := range stale {
		kind := r.markers[key].Kind
		if err := r.surface.RemoveMarker(key); err != nil {
			return stats, fmt.Errorf("remove marker %s: %w", key, err)
		}
		delete(r.markers, key)
		metrics.RecordMarkerOp(string(kind), "remove")
		stats.Removed++
	}

	// Devices first so alert markers are added above them
	sort.SliceStable(order, func(i, j int) bool {
		return desired[order[i]].Layer < desired[order[j]].Layer
	})

	for _, key := range order {
		m := desired[key]
		current, exists := r.markers[key]
		switch {
		case !exists:
			if err := r.surface.AddMarker(m); err != nil {
				return stats, fmt.Errorf("add marker %s: %w", key, err)
			}
			metrics.RecordMarkerOp(string(m.Kind), "add")
			stats.Added++
		case current != m:
			if err := r.surface.UpdateMarker(m); err != nil {
				return stats, fmt.Errorf("update marker %s: %w", key, err)
			}
			metrics.RecordMarkerOp(string(m.Kind), "update")
			stats.Updated++
		default:
			stats.Unchanged++
			continue
		}
		r.markers[key] = m
	}

	log.Debug().
		Int("added", stats.Added).
		Int("updated", stats.Updated).
		Int("removed", stats.Removed).
		Int("unchanged", stats.Unchanged).
		Msg("Map reconciled")
	return stats, nil
}

// Markers returns the markers currently on the surface, devices first
func (r *Reconciler) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Marker, 0, len(r.markers))
	for _, m := range r.markers {
		out = append(out, m)
	}
	sortMarkers(out)
	return out
}

// Unmount destroys the surface. Only the first call does anything.
func (r *Reconciler) Unmount() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return nil
	}
	r.destroyed = true
	r.markers = make(map[string]Marker)

	if r.surface == nil {
		return nil
	}
	err := r.surface.Destroy()
	r.surface = nil
	return err
}

func sortMarkers(ms []Marker) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Layer != ms[j].Layer {
			return ms[i].Layer < ms[j].Layer
		}
		return ms[i].Key < ms[j].Key
	})
}

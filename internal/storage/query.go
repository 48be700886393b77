package storage

import (
	"fmt"
	"sort"
	"strings"
)

// Entity names a table the gateway may touch
type Entity string

const (
	EntityDevices        Entity = "devices"
	EntityDeviceSettings Entity = "device_settings"
	EntityAlerts         Entity = "alerts"
	EntityAnalytics      Entity = "analytics"
)

// columns lists the identifiers accepted per entity. Anything else is
// rejected before a statement is built.
var columns = map[Entity]map[string]bool{
	EntityDevices: set("id", "device_id", "name", "location", "status", "battery",
		"signal_strength", "connectivity", "last_ping", "alerts_count",
		"uptime_percentage", "created_at", "updated_at"),
	EntityDeviceSettings: set("device_id", "ping_interval", "battery_threshold",
		"connectivity", "updated_at"),
	EntityAlerts: set("id", "alert_id", "device_id", "alert_type", "severity", "location",
		"description", "audio_url", "photo_url", "timestamp", "resolved", "created_at"),
	EntityAnalytics: set("date", "day", "month", "gunshots", "chainsaws", "vehicles",
		"total", "alerts", "incidents"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Op is a comparison operator
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Filter restricts a query to rows where Column Op Value
type Filter struct {
	Column string
	Op     Op
	Value  interface{}
}

// Order sorts query results
type Order struct {
	Column    string
	Ascending bool
}

// Query describes a select against one entity
type Query struct {
	Entity  Entity
	Columns []string
	Filters []Filter
	Order   *Order
}

// Patch is a partial update keyed by column name
type Patch map[string]interface{}

func checkColumn(entity Entity, column string) error {
	known, ok := columns[entity]
	if !ok {
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidData, entity)
	}
	if !known[column] {
		return fmt.Errorf("%w: unknown column %q on %s", ErrInvalidData, column, entity)
	}
	return nil
}

// SQL renders the select statement and its arguments
func (q Query) SQL() (string, []interface{}, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if err := checkColumn(q.Entity, c); err != nil {
				return "", nil, err
			}
		}
		cols = strings.Join(q.Columns, ", ")
	} else if _, ok := columns[q.Entity]; !ok {
		return "", nil, fmt.Errorf("%w: unknown entity %q", ErrInvalidData, q.Entity)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE 1=1", cols, q.Entity)

	args := []interface{}{}
	argCount := 0
	for _, f := range q.Filters {
		if err := checkColumn(q.Entity, f.Column); err != nil {
			return "", nil, err
		}
		switch f.Op {
		case OpEq, OpGte, OpLte:
		default:
			return "", nil, fmt.Errorf("%w: unsupported operator %q", ErrInvalidData, f.Op)
		}
		argCount++
		fmt.Fprintf(&b, " AND %s %s $%d", f.Column, f.Op, argCount)
		args = append(args, f.Value)
	}

	if q.Order != nil {
		if err := checkColumn(q.Entity, q.Order.Column); err != nil {
			return "", nil, err
		}
		dir := "DESC"
		if q.Order.Ascending {
			dir = "ASC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", q.Order.Column, dir)
	}

	return b.String(), args, nil
}

// updateSQL renders an UPDATE ... WHERE key = $n RETURNING statement.
// Columns are emitted in sorted order so statements are stable.
func updateSQL(entity Entity, key string, keyValue interface{}, patch Patch, returning string) (string, []interface{}, error) {
	if len(patch) == 0 {
		return "", nil, fmt.Errorf("%w: empty patch", ErrInvalidData)
	}
	if err := checkColumn(entity, key); err != nil {
		return "", nil, err
	}

	names := make([]string, 0, len(patch))
	for name := range patch {
		if err := checkColumn(entity, name); err != nil {
			return "", nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names)+1)
	for i, name := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+1))
		args = append(args, patch[name])
	}
	args = append(args, keyValue)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		entity, strings.Join(sets, ", "), key, len(args), returning)
	return query, args, nil
}

package inventory

import (
	"fmt"
	"strings"
	"time"
)

// TransactionQuery narrows a ledger read. Empty fields do not filter; list
// fields match any of their values.
type TransactionQuery struct {
	SKUs      []string
	Locations []string
	Types     []MovementType
	From      time.Time
	To        time.Time
}

// Matches reports whether t satisfies the query.
func (q TransactionQuery) Matches(t TransactionRecord) bool {
	if len(q.SKUs) > 0 && !contains(q.SKUs, t.SKU) {
		return false
	}
	if len(q.Locations) > 0 && !contains(q.Locations, t.Location) {
		return false
	}
	if len(q.Types) > 0 && !contains(q.Types, t.Type) {
		return false
	}
	if !q.From.IsZero() && t.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && t.Timestamp.After(q.To) {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// where renders the query as a SQL WHERE clause with positional arguments.
func (q TransactionQuery) where() (string, []any) {
	var conditions []string
	var args []any
	argPos := 1

	if len(q.SKUs) > 0 {
		conditions = append(conditions, fmt.Sprintf("sku = ANY($%d)", argPos))
		args = append(args, q.SKUs)
		argPos++
	}
	if len(q.Locations) > 0 {
		conditions = append(conditions, fmt.Sprintf("location = ANY($%d)", argPos))
		args = append(args, q.Locations)
		argPos++
	}
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		conditions = append(conditions, fmt.Sprintf("type = ANY($%d)", argPos))
		args = append(args, types)
		argPos++
	}
	if !q.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", argPos))
		args = append(args, q.From)
		argPos++
	}
	if !q.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("occurred_at <= $%d", argPos))
		args = append(args, q.To)
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

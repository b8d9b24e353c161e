package dto

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filter is a `column=eq.value` condition.
type Filter struct {
	Column string
	Value  string
}

type Order struct {
	Column string
	Desc   bool
}

// Query is a parsed PostgREST-style read or delete request.
type Query struct {
	// Columns is nil for `select=*`.
	Columns []string
	Filters []Filter
	Order   *Order
	Limit   int
	Offset  int
}

var reserved = map[string]bool{
	"select": true,
	"order":  true,
	"limit":  true,
	"offset": true,
}

func ParseQuery(values url.Values) (Query, error) {
	var q Query

	if sel := strings.TrimSpace(values.Get("select")); sel != "" && sel != "*" {
		for _, col := range strings.Split(sel, ",") {
			if col = strings.TrimSpace(col); col != "" {
				q.Columns = append(q.Columns, col)
			}
		}
	}

	if ord := values.Get("order"); ord != "" {
		parts := strings.Split(ord, ".")
		o := &Order{Column: parts[0]}
		for _, modifier := range parts[1:] {
			switch modifier {
			case "asc":
				o.Desc = false
			case "desc":
				o.Desc = true
			case "nullsfirst", "nullslast":
			default:
				return q, fmt.Errorf("invalid order modifier %q", modifier)
			}
		}
		q.Order = o
	}

	if lim := values.Get("limit"); lim != "" {
		n, err := strconv.Atoi(lim)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid limit %q", lim)
		}
		q.Limit = n
	}

	if off := values.Get("offset"); off != "" {
		n, err := strconv.Atoi(off)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid offset %q", off)
		}
		q.Offset = n
	}

	for key, vals := range values {
		if reserved[key] {
			continue
		}
		for _, v := range vals {
			op, operand, ok := strings.Cut(v, ".")
			if !ok || op != "eq" {
				return q, fmt.Errorf("unsupported filter %s=%s", key, v)
			}
			q.Filters = append(q.Filters, Filter{Column: key, Value: operand})
		}
	}

	return q, nil
}

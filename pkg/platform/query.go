package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// QueryBuilder assembles one table request. Builders are single use.
type QueryBuilder struct {
	client  *Client
	table   string
	columns string
	filters []filter
	order   string
	limit   int
	offset  int
}

type filter struct {
	column string
	value  string
}

func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{client: c, table: table, columns: "*", limit: -1}
}

func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = columns
	return q
}

func (q *QueryBuilder) Eq(column string, value interface{}) *QueryBuilder {
	q.filters = append(q.filters, filter{column: column, value: fmt.Sprint(value)})
	return q
}

func (q *QueryBuilder) Order(column string, ascending bool) *QueryBuilder {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = column + "." + dir
	return q
}

func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.limit = n
	return q
}

func (q *QueryBuilder) Range(from, to int) *QueryBuilder {
	q.offset = from
	q.limit = to - from + 1
	return q
}

func (q *QueryBuilder) values() url.Values {
	v := url.Values{}
	v.Set("select", q.columns)
	for _, f := range q.filters {
		v.Add(f.column, "eq."+f.value)
	}
	if q.order != "" {
		v.Set("order", q.order)
	}
	if q.limit >= 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		v.Set("offset", strconv.Itoa(q.offset))
	}
	return v
}

func (q *QueryBuilder) path() string {
	return "/rest/v1/" + url.PathEscape(q.table)
}

// Execute runs the read and decodes the rows into dest, a pointer to a
// slice.
func (q *QueryBuilder) Execute(ctx context.Context, dest interface{}) error {
	return q.client.do(ctx, http.MethodGet, q.path(), q.values(), nil, q.client.authHeader(), dest)
}

// Insert writes rows (one struct/map or a slice of them) and decodes the
// stored rows into dest when dest is not nil.
func (q *QueryBuilder) Insert(ctx context.Context, rows interface{}, dest interface{}) error {
	h := q.client.authHeader()
	h.Set("Prefer", "return=representation")
	return q.client.do(ctx, http.MethodPost, q.path(), nil, rows, h, dest)
}

// Delete removes the rows matched by the Eq filters.
func (q *QueryBuilder) Delete(ctx context.Context, dest interface{}) error {
	v := url.Values{}
	for _, f := range q.filters {
		v.Add(f.column, "eq."+f.value)
	}
	return q.client.do(ctx, http.MethodDelete, q.path(), v, nil, q.client.authHeader(), dest)
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"reflect"
	"strconv"

	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
	contentDto "anoa.com/isfportal/internal/modules/content/dto"
	"anoa.com/isfportal/internal/modules/content/repository"
	realtime "anoa.com/isfportal/internal/modules/realtime/service"
	search "anoa.com/isfportal/internal/modules/search/service"
	"anoa.com/isfportal/pkg/apperror"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/validator"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Caller is whoever issued the request; ID is uuid.Nil for anonymous callers.
type Caller struct {
	ID      uuid.UUID
	Subject access.Subject
}

type Row = map[string]interface{}

type ContentService interface {
	List(ctx context.Context, table string, q contentDto.Query, caller Caller) ([]Row, error)
	Insert(ctx context.Context, table string, body []byte, caller Caller) ([]Row, error)
	Delete(ctx context.Context, table string, q contentDto.Query, caller Caller) ([]Row, error)
}

type contentService struct {
	repo      repository.ContentRepository
	publisher realtime.Publisher
	search    search.SearchService
	sanitizer *bluemonday.Policy
}

// NewContentService accepts a nil search service when indexing is disabled.
func NewContentService(repo repository.ContentRepository, publisher realtime.Publisher, search search.SearchService) ContentService {
	return &contentService{
		repo:      repo,
		publisher: publisher,
		search:    search,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func lookup(table string) (tableSpec, error) {
	spec, ok := tables[table]
	if !ok {
		return tableSpec{}, apperror.New(http.StatusNotFound, fmt.Sprintf("relation %q does not exist", table), apperror.ErrNotFound)
	}
	return spec, nil
}

func columnError(table, column string) error {
	return apperror.New(http.StatusBadRequest, fmt.Sprintf("column %s.%s does not exist", table, column), apperror.ErrBadRequest)
}

// gate maps a guard decision to the HTTP error a caller should see.
func gate(caller Caller, role, table string) error {
	if access.Decide(caller.subject(), role) == access.Allow {
		return nil
	}
	if _, present := caller.subject().IdentityRole(); !present {
		return apperror.New(http.StatusUnauthorized, "authorization required", apperror.ErrUnauthorized)
	}
	return apperror.New(http.StatusForbidden, fmt.Sprintf("permission denied for table %s", table), apperror.ErrForbidden)
}

func (c Caller) subject() access.Subject {
	if c.Subject == nil {
		return access.Anonymous()
	}
	return c.Subject
}

func (s *contentService) conditions(spec tableSpec, filters []contentDto.Filter) ([]repository.Condition, error) {
	var conds []repository.Condition
	for _, f := range filters {
		kind, ok := spec.columns[f.Column]
		if !ok {
			return nil, columnError(spec.name, f.Column)
		}

		var value interface{} = f.Value
		switch kind {
		case kindInt:
			n, err := strconv.ParseInt(f.Value, 10, 64)
			if err != nil {
				return nil, apperror.New(http.StatusBadRequest, fmt.Sprintf("invalid input syntax for type integer: %q", f.Value), apperror.ErrBadRequest)
			}
			value = n
		case kindUUID:
			id, err := uuid.Parse(f.Value)
			if err != nil {
				return nil, apperror.New(http.StatusBadRequest, fmt.Sprintf("invalid input syntax for type uuid: %q", f.Value), apperror.ErrBadRequest)
			}
			value = id
		}
		conds = append(conds, repository.Condition{Column: f.Column, Value: value})
	}
	return conds, nil
}

func (s *contentService) List(ctx context.Context, table string, q contentDto.Query, caller Caller) ([]Row, error) {
	spec, err := lookup(table)
	if err != nil {
		return nil, err
	}

	if spec.readRole != "" {
		if err := gate(caller, spec.readRole, table); err != nil {
			return nil, err
		}
	}

	for _, col := range q.Columns {
		if _, ok := spec.columns[col]; !ok {
			return nil, columnError(table, col)
		}
	}

	conds, err := s.conditions(spec, q.Filters)
	if err != nil {
		return nil, err
	}

	if spec.ownRowsOnly && access.Decide(caller.subject(), entity.RoleAdmin) != access.Allow {
		conds = append(conds, repository.Condition{Column: "id", Value: caller.ID})
	}

	rq := repository.Query{Conditions: conds, Limit: q.Limit, Offset: q.Offset}
	if q.Order != nil {
		if _, ok := spec.columns[q.Order.Column]; !ok {
			return nil, columnError(table, q.Order.Column)
		}
		rq.OrderBy, rq.Desc = q.Order.Column, q.Order.Desc
	}

	dest := spec.newRows()
	if err := s.repo.Find(ctx, dest, rq); err != nil {
		return nil, err
	}

	rows, err := toRows(dest)
	if err != nil {
		return nil, err
	}
	return project(rows, q.Columns), nil
}

func (s *contentService) Insert(ctx context.Context, table string, body []byte, caller Caller) ([]Row, error) {
	spec, err := lookup(table)
	if err != nil {
		return nil, err
	}
	if spec.writeRole == "" {
		return nil, apperror.New(http.StatusForbidden, fmt.Sprintf("permission denied for table %s", table), apperror.ErrForbidden)
	}
	if err := gate(caller, spec.writeRole, table); err != nil {
		return nil, err
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		body = append(append([]byte{'['}, body...), ']')
	}

	dest := spec.newRows()
	if err := json.Unmarshal(body, dest); err != nil {
		return nil, apperror.New(http.StatusBadRequest, "invalid JSON body", apperror.ErrInvalidInput)
	}

	n := reflect.ValueOf(dest).Elem().Len()
	if n == 0 {
		return []Row{}, nil
	}

	if spec.sanitize != nil {
		spec.sanitize(dest, s.clean)
	}

	elems := reflect.ValueOf(dest).Elem()
	for i := 0; i < n; i++ {
		if err := validator.Struct(elems.Index(i).Addr().Interface()); err != nil {
			return nil, apperror.New(http.StatusBadRequest, validator.FormatValidationError(err), apperror.ErrInvalidInput)
		}
	}

	if err := s.repo.Create(ctx, dest); err != nil {
		return nil, err
	}

	rows, err := toRows(dest)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		s.publish(ctx, table, entity.ChangeInsert, row, nil)
	}
	if s.search != nil {
		if err := s.search.IndexRecords(table, rows); err != nil {
			logger.Warn().Err(err).Str("table", table).Msg("search indexing failed")
		}
	}

	return rows, nil
}

func (s *contentService) Delete(ctx context.Context, table string, q contentDto.Query, caller Caller) ([]Row, error) {
	spec, err := lookup(table)
	if err != nil {
		return nil, err
	}
	if spec.writeRole == "" {
		return nil, apperror.New(http.StatusForbidden, fmt.Sprintf("permission denied for table %s", table), apperror.ErrForbidden)
	}
	if err := gate(caller, entity.RoleAdmin, table); err != nil {
		return nil, err
	}
	if len(q.Filters) == 0 {
		return nil, apperror.New(http.StatusBadRequest, "DELETE requires a filter", apperror.ErrBadRequest)
	}

	conds, err := s.conditions(spec, q.Filters)
	if err != nil {
		return nil, err
	}

	dest := spec.newRows()
	if err := s.repo.Delete(ctx, dest, conds); err != nil {
		return nil, err
	}

	rows, err := toRows(dest)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		s.publish(ctx, table, entity.ChangeDelete, nil, row)
		if id, ok := row["id"].(float64); ok && id >= 0 {
			ids = append(ids, uint(id))
		}
	}
	if s.search != nil && len(ids) > 0 {
		if err := s.search.RemoveRecords(table, ids); err != nil {
			logger.Warn().Err(err).Str("table", table).Msg("search removal failed")
		}
	}

	return rows, nil
}

func (s *contentService) clean(v string) string {
	return html.UnescapeString(s.sanitizer.Sanitize(v))
}

func (s *contentService) publish(ctx context.Context, table, kind string, record, old Row) {
	if s.publisher == nil {
		return
	}

	change := entity.ChangeEvent{Table: table, Type: kind}
	if record != nil {
		change.Record, _ = json.Marshal(record)
	}
	if old != nil {
		change.OldRecord, _ = json.Marshal(old)
	}

	if err := s.publisher.Publish(ctx, change); err != nil {
		logger.Warn().Err(err).Str("table", table).Str("type", kind).Msg("change publish failed")
	}
}

func toRows(dest interface{}) ([]Row, error) {
	raw, err := json.Marshal(dest)
	if err != nil {
		return nil, err
	}
	rows := []Row{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func project(rows []Row, columns []string) []Row {
	if len(columns) == 0 {
		return rows
	}
	out := make([]Row, len(rows))
	for i, row := range rows {
		picked := make(Row, len(columns))
		for _, col := range columns {
			picked[col] = row[col]
		}
		out[i] = picked
	}
	return out
}

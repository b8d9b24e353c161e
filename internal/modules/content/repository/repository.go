package repository

import (
	"context"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Condition is an equality filter on a white-listed column.
type Condition struct {
	Column string
	Value  interface{}
}

type Query struct {
	Conditions []Condition
	OrderBy    string
	Desc       bool
	Limit      int
	Offset     int
}

// ContentRepository works on pointers to slices of entity rows; the table is
// inferred from the element type.
type ContentRepository interface {
	Find(ctx context.Context, dest interface{}, q Query) error
	Create(ctx context.Context, rows interface{}) error
	// Delete loads the matching rows into dest, then removes them.
	Delete(ctx context.Context, dest interface{}, conditions []Condition) error
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func where(tx *gorm.DB, conditions []Condition) *gorm.DB {
	for _, c := range conditions {
		tx = tx.Where(clause.Eq{Column: clause.Column{Name: c.Column}, Value: c.Value})
	}
	return tx
}

func (r *contentRepository) Find(ctx context.Context, dest interface{}, q Query) error {
	tx := where(r.db.WithContext(ctx), q.Conditions)
	if q.OrderBy != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	return tx.Find(dest).Error
}

func (r *contentRepository) Create(ctx context.Context, rows interface{}) error {
	return r.db.WithContext(ctx).Create(rows).Error
}

func (r *contentRepository) Delete(ctx context.Context, dest interface{}, conditions []Condition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := where(tx, conditions).Find(dest).Error; err != nil {
			return err
		}
		if reflect.ValueOf(dest).Elem().Len() == 0 {
			return nil
		}
		return tx.Delete(dest).Error
	})
}

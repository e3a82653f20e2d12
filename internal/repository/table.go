package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ownedTable is a table-scoped accessor whose reads and writes are always
// constrained to rows belonging to one owner. The underlying connection is
// privileged, so the owner filter here is the only ownership enforcement.
type ownedTable[T any] struct {
	db          *gorm.DB
	ownerColumn string
}

func newOwnedTable[T any](db *gorm.DB, ownerColumn string) ownedTable[T] {
	return ownedTable[T]{db: db, ownerColumn: ownerColumn}
}

func (t ownedTable[T]) scoped(ctx context.Context, owner uuid.UUID) *gorm.DB {
	return t.db.WithContext(ctx).Model(new(T)).Where(t.ownerColumn+" = ?", owner)
}

// Get returns the row with the given id, or gorm.ErrRecordNotFound when it does
// not exist or belongs to someone else.
func (t ownedTable[T]) Get(ctx context.Context, owner, id uuid.UUID) (*T, error) {
	var row T
	if err := t.scoped(ctx, owner).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns all rows of owner in the given order.
func (t ownedTable[T]) List(ctx context.Context, owner uuid.UUID, order string) ([]T, error) {
	rows := make([]T, 0)
	if err := t.scoped(ctx, owner).Order(order).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Insert writes a new row. The caller sets the owner column on row.
func (t ownedTable[T]) Insert(ctx context.Context, row *T) error {
	return t.db.WithContext(ctx).Create(row).Error
}

// Update applies changes to one owned row. A nil value in changes writes NULL.
func (t ownedTable[T]) Update(ctx context.Context, owner, id uuid.UUID, changes map[string]interface{}) error {
	res := t.scoped(ctx, owner).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes one owned row.
func (t ownedTable[T]) Delete(ctx context.Context, owner, id uuid.UUID) error {
	res := t.db.WithContext(ctx).Where(t.ownerColumn+" = ? AND id = ?", owner, id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

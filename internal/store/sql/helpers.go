package sql

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/albri/mdplane/internal/models"
)

// getByField retrieves a single record of type T by field=value, converting
// gorm.ErrRecordNotFound to notFound.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFound *models.DomainError, preloads ...string) (*T, error) {
	var out T
	q := db.WithContext(ctx)
	for _, p := range preloads {
		q = q.Preload(p)
	}
	if err := q.Where(field+" = ?", value).First(&out).Error; err != nil {
		return nil, convertNotFound(err, notFound)
	}
	return &out, nil
}

// listByField retrieves every record of type T matching field=value.
func listByField[T any](db *gorm.DB, ctx context.Context, field string, value any) ([]*T, error) {
	var out []*T
	if err := db.WithContext(ctx).Where(field+" = ?", value).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// createWithID assigns a UUID to entity if it has none, then inserts it.
func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, id string, setID func(*T, string), dup *models.DomainError) (string, error) {
	if id == "" {
		id = uuid.New().String()
		setID(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) && dup != nil {
			return "", dup
		}
		return "", err
	}
	return id, nil
}

// deleteByField deletes every record of type T matching field=value and
// reports notFound if nothing matched.
func deleteByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFound *models.DomainError) error {
	var zero T
	res := db.WithContext(ctx).Where(field+" = ?", value).Delete(&zero)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 && notFound != nil {
		return notFound
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func convertNotFound(err error, notFound *models.DomainError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if notFound != nil {
			return notFound
		}
		return err
	}
	return err
}

package repository

import (
	"context"
	"errors"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
)

var (
	ErrNotFound = errors.New("entity not found")
)

// EntityRepository reads searchable entities from the primary datastore.
type EntityRepository interface {
	FindByID(ctx context.Context, cat domain.Category, id string) (domain.Entity, error)
	// FindManyByIDs returns the live entities among ids. Order is not
	// guaranteed and missing ids are omitted.
	FindManyByIDs(ctx context.Context, cat domain.Category, ids []string) ([]domain.Entity, error)
	// ListBatch pages through a category ordered by id.
	ListBatch(ctx context.Context, cat domain.Category, offset, limit int) ([]domain.Entity, error)
	Ping(ctx context.Context) error
	EnsureTextIndexes(ctx context.Context) error
}

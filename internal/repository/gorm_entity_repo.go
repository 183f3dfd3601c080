package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/database"
	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/log"
)

// GormEntityRepository implements EntityRepository using GORM.
type GormEntityRepository struct {
	db *gorm.DB
}

// NewGormEntityRepository creates a new GORM-based entity repository.
func NewGormEntityRepository(db *gorm.DB) *GormEntityRepository {
	return &GormEntityRepository{db: db}
}

// FindByID retrieves one live entity.
func (r *GormEntityRepository) FindByID(ctx context.Context, cat domain.Category, id string) (domain.Entity, error) {
	model, err := domain.NewModel(cat)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).First(model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).
			Str(log.FieldCategory, string(cat)).
			Str(log.FieldEntityID, id).
			Msg("failed to get entity by id")
		return nil, result.Error
	}
	return model.ToEntity(), nil
}

// FindManyByIDs retrieves the live entities among ids.
func (r *GormEntityRepository) FindManyByIDs(ctx context.Context, cat domain.Category, ids []string) ([]domain.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return r.find(ctx, cat, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id IN ?", ids)
	})
}

// ListBatch pages through a category ordered by id.
func (r *GormEntityRepository) ListBatch(ctx context.Context, cat domain.Category, offset, limit int) ([]domain.Entity, error) {
	if limit < 1 {
		return nil, nil
	}

	return r.find(ctx, cat, func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC").Offset(offset).Limit(limit)
	})
}

// Find runs scope against the category's table and converts the rows.
// Soft-deleted rows are excluded.
func (r *GormEntityRepository) Find(ctx context.Context, cat domain.Category, scope func(*gorm.DB) *gorm.DB) ([]domain.Entity, error) {
	return r.find(ctx, cat, scope)
}

// Count counts the live rows matched by scope.
func (r *GormEntityRepository) Count(ctx context.Context, cat domain.Category, scope func(*gorm.DB) *gorm.DB) (int, error) {
	model, err := domain.NewModel(cat)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := scope(r.db.WithContext(ctx).Model(model)).Count(&total).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldCategory, string(cat)).Msg("failed to count entities")
		return 0, fmt.Errorf("count %s: %w", cat, err)
	}
	return int(total), nil
}

// Dialect names the underlying SQL dialect.
func (r *GormEntityRepository) Dialect() string {
	return r.db.Dialector.Name()
}

func (r *GormEntityRepository) find(ctx context.Context, cat domain.Category, scope func(*gorm.DB) *gorm.DB) ([]domain.Entity, error) {
	dest, err := newModelSlice(cat)
	if err != nil {
		return nil, err
	}

	model, _ := domain.NewModel(cat)
	if err := scope(r.db.WithContext(ctx).Model(model)).Find(dest).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldCategory, string(cat)).Msg("failed to query entities")
		return nil, fmt.Errorf("query %s: %w", cat, err)
	}
	return entitiesOf(dest), nil
}

// Ping checks that the primary datastore is reachable.
func (r *GormEntityRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// EnsureTextIndexes creates one GIN expression index per category over
// its text columns. Only PostgreSQL has them; other dialects are a no-op.
func (r *GormEntityRepository) EnsureTextIndexes(ctx context.Context) error {
	if !database.IsPostgres(r.db) {
		return nil
	}

	l := log.Ctx(ctx)
	for _, cat := range domain.Categories {
		table, err := TableName(cat)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS idx_%s_fts ON %s USING GIN (%s)",
			table, table, TSVectorExpr(cat),
		)
		if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("create text index on %s: %w", table, err)
		}
		l.Debug().Str(log.FieldCategory, string(cat)).Msg("text index ensured")
	}
	return nil
}

// newModelSlice returns a pointer to an empty slice of the category's
// model, suitable as a Find destination.
func newModelSlice(cat domain.Category) (interface{}, error) {
	switch cat {
	case domain.CategoryUsers:
		return &[]domain.UserProfileModel{}, nil
	case domain.CategoryGroups:
		return &[]domain.GroupModel{}, nil
	case domain.CategoryEvents:
		return &[]domain.EventModel{}, nil
	case domain.CategoryKnowledge:
		return &[]domain.KnowledgePostModel{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, cat)
	}
}

func entitiesOf(dest interface{}) []domain.Entity {
	var out []domain.Entity
	switch rows := dest.(type) {
	case *[]domain.UserProfileModel:
		for i := range *rows {
			out = append(out, (*rows)[i].ToEntity())
		}
	case *[]domain.GroupModel:
		for i := range *rows {
			out = append(out, (*rows)[i].ToEntity())
		}
	case *[]domain.EventModel:
		for i := range *rows {
			out = append(out, (*rows)[i].ToEntity())
		}
	case *[]domain.KnowledgePostModel:
		for i := range *rows {
			out = append(out, (*rows)[i].ToEntity())
		}
	}
	return out
}

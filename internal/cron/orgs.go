package cron

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orro3790/drive-sub004/pkg/db/models"
)

// orgLister yields every tenant the worker should sweep.
type orgLister interface {
	ListOrgIDs(ctx context.Context) ([]uuid.UUID, error)
}

// OrgRepository derives the tenant list from route ownership; an org with
// no routes has nothing to dispatch.
type OrgRepository struct {
	db *gorm.DB
}

// NewOrgRepository binds the org lister to the database.
func NewOrgRepository(db *gorm.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// ListOrgIDs returns the distinct org IDs that own at least one route.
func (r *OrgRepository) ListOrgIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Route{}).
		Distinct("org_id").
		Order("org_id ASC").
		Pluck("org_id", &ids).Error
	return ids, err
}

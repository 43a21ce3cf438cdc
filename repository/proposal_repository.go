package repository

import (
	"context"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// ProposalRepositoryImpl implements the ProposalRepository interface
type ProposalRepositoryImpl struct {
	*BaseRepository[models.Proposal, models.ProposalFilter]
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *gorm.DB) ProposalRepository {
	return &ProposalRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Proposal, models.ProposalFilter](db),
	}
}

// ByUUID retrieves a proposal by UUID within one tenant
func (r *ProposalRepositoryImpl) ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Proposal, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ProposalFilter{TenantID: &tenantID, UUID: &parsedUUID}
	proposals, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(proposals) == 0 {
		return nil, nil
	}

	return proposals[0], nil
}

// ListByTenant retrieves proposals belonging to a tenant with pagination
func (r *ProposalRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, filter models.ProposalFilter, limit, offset int) ([]*models.Proposal, error) {
	filter.TenantID = &tenantID
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a proposal
func (r *ProposalRepositoryImpl) Update(ctx context.Context, proposal *models.Proposal) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	proposal.UpdatedAt = utils.UTCNow()
	err = db.Save(proposal).Error
	if err != nil {
		return err
	}

	return nil
}

// MarkSent moves a draft proposal to sent
func (r *ProposalRepositoryImpl) MarkSent(ctx context.Context, tenantID, proposalID uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Proposal{}).
		Where("tenant_id = ? AND id = ? AND status = ?",
			tenantID, proposalID, models.ProposalStatusDraft).
		Updates(map[string]any{
			"status":     models.ProposalStatusSent,
			"sent_at":    at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// Respond records the accept or decline answer. The predicate requires the
// proposal to still be in sent, so a second answer matches zero rows and the
// double-response shows up as a conflict to the caller.
func (r *ProposalRepositoryImpl) Respond(ctx context.Context, tenantID, proposalID uint, status string, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Proposal{}).
		Where("tenant_id = ? AND id = ? AND status = ?",
			tenantID, proposalID, models.ProposalStatusSent).
		Updates(map[string]any{
			"status":       status,
			"responded_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ByFilter retrieves proposals based on filter criteria
func (r *ProposalRepositoryImpl) ByFilter(ctx context.Context, filter models.ProposalFilter, orderBy string, limit, offset int) ([]*models.Proposal, error) {
	db := r.getDB(ctx)

	var proposals []*models.Proposal
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Deal")

	err := query.Find(&proposals).Error
	if err != nil {
		return nil, err
	}

	return proposals, nil
}

// Count returns the number of proposals matching the filter
func (r *ProposalRepositoryImpl) Count(ctx context.Context, filter models.ProposalFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Proposal{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any proposal matching the filter exists
func (r *ProposalRepositoryImpl) Exists(ctx context.Context, filter models.ProposalFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ProposalRepositoryImpl) applyFilter(db *gorm.DB, filter models.ProposalFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.DealID != nil {
		db = db.Where("deal_id = ?", *filter.DealID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}

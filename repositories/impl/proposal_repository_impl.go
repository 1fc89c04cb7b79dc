package impl

import (
	"PinguinGuard/models"
	"PinguinGuard/repositories"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProposalRepositoryImpl struct {
	DB *gorm.DB
}

func NewProposalRepository(db *gorm.DB) repositories.ProposalRepository {
	return &ProposalRepositoryImpl{DB: db}
}

func (r *ProposalRepositoryImpl) Create(ctx context.Context, proposal *models.ChangeProposal) error {
	if err := r.DB.WithContext(ctx).Create(proposal).Error; err != nil {
		if isDuplicateKey(err) {
			return repositories.ErrOpenProposalExists
		}
		return wrap("create proposal", err)
	}
	return nil
}

func (r *ProposalRepositoryImpl) FindByID(ctx context.Context, id string) (models.ChangeProposal, error) {
	var proposal models.ChangeProposal
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&proposal).Error; err != nil {
		return models.ChangeProposal{}, translateError(err)
	}
	return proposal, nil
}

func (r *ProposalRepositoryImpl) FindByIDForUpdate(ctx context.Context, id string) (models.ChangeProposal, error) {
	query := r.DB.WithContext(ctx)
	// SQLite блокирует всю базу на запись, построчная блокировка нужна только Postgres
	if r.DB.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var proposal models.ChangeProposal
	if err := query.Where("id = ?", id).First(&proposal).Error; err != nil {
		return models.ChangeProposal{}, translateError(err)
	}
	return proposal, nil
}

func (r *ProposalRepositoryImpl) FindOpen(ctx context.Context, childID string, changeType models.ChangeType) (models.ChangeProposal, error) {
	var proposal models.ChangeProposal
	err := r.DB.WithContext(ctx).
		Where("open_key = ?", models.OpenKeyFor(childID, changeType)).
		First(&proposal).Error
	if err != nil {
		return models.ChangeProposal{}, translateError(err)
	}
	return proposal, nil
}

func (r *ProposalRepositoryImpl) LatestClosed(ctx context.Context, childID string, changeType models.ChangeType) (models.ChangeProposal, error) {
	var proposal models.ChangeProposal
	err := r.DB.WithContext(ctx).
		Where("child_id = ? AND change_type = ? AND closed_at IS NOT NULL", childID, changeType).
		Order("closed_at DESC").
		First(&proposal).Error
	if err != nil {
		return models.ChangeProposal{}, translateError(err)
	}
	return proposal, nil
}

func (r *ProposalRepositoryImpl) ListByChild(ctx context.Context, childID string) ([]models.ChangeProposal, error) {
	var proposals []models.ChangeProposal
	err := r.DB.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("created_at DESC").
		Find(&proposals).Error
	return proposals, err
}

func (r *ProposalRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	query := r.DB.WithContext(ctx).
		Model(&models.ChangeProposal{}).
		Where("due_at IS NOT NULL AND due_at <= ?", now).
		Order("due_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("id", &ids).Error
	return ids, err
}

func (r *ProposalRepositoryImpl) Update(ctx context.Context, proposal *models.ChangeProposal) error {
	expected := proposal.Version
	proposal.Version = expected + 1

	result := r.DB.WithContext(ctx).
		Model(&models.ChangeProposal{}).
		Where("id = ? AND version = ?", proposal.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(proposal)
	if result.Error != nil {
		proposal.Version = expected
		return wrap("update proposal", result.Error)
	}
	if result.RowsAffected == 0 {
		proposal.Version = expected
		return repositories.ErrConflict
	}
	return nil
}

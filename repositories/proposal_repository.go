package repositories

import (
	"PinguinGuard/models"
	"context"
	"time"
)

type ProposalRepository interface {
	Create(ctx context.Context, proposal *models.ChangeProposal) error
	FindByID(ctx context.Context, id string) (models.ChangeProposal, error)
	// FindByIDForUpdate читает предложение с блокировкой строки до конца транзакции.
	FindByIDForUpdate(ctx context.Context, id string) (models.ChangeProposal, error)
	FindOpen(ctx context.Context, childID string, changeType models.ChangeType) (models.ChangeProposal, error)
	LatestClosed(ctx context.Context, childID string, changeType models.ChangeType) (models.ChangeProposal, error)
	ListByChild(ctx context.Context, childID string) ([]models.ChangeProposal, error)
	// ListDue возвращает ID предложений, у которых наступил DueAt.
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
	// Update сохраняет предложение, только если Version не изменилась с момента чтения.
	Update(ctx context.Context, proposal *models.ChangeProposal) error
}

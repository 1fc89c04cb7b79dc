package services

import (
	"PinguinGuard/clock"
	"PinguinGuard/models"
	"time"
)

// CoolingPeriodScheduler оценивает 48-часовое окно охлаждения.
// Пока окно открыто, новое значение настройки не записывается.
type CoolingPeriodScheduler struct {
	Clock clock.Clock
}

func NewCoolingPeriodScheduler(c clock.Clock) *CoolingPeriodScheduler {
	return &CoolingPeriodScheduler{Clock: c}
}

func (s *CoolingPeriodScheduler) CanCancelCoolingPeriod(proposal models.ChangeProposal) bool {
	return s.CanCancelAt(proposal, s.Clock.Now())
}

func (s *CoolingPeriodScheduler) CanCancelAt(proposal models.ChangeProposal, now time.Time) bool {
	return proposal.Status == models.StatusCoolingInProgress &&
		proposal.CoolingPeriod != nil &&
		now.Before(proposal.CoolingPeriod.EndsAt)
}

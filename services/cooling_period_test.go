package services

import (
	"PinguinGuard/clock"
	"PinguinGuard/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func coolingProposal(start time.Time) models.ChangeProposal {
	return models.ChangeProposal{
		Status:        models.StatusCoolingInProgress,
		CoolingPeriod: &models.CoolingPeriod{StartsAt: start, EndsAt: start.Add(models.CoolingPeriodLength)},
	}
}

func TestCanCancelCoolingPeriod(t *testing.T) {
	c := clock.Fake(testNow)
	s := NewCoolingPeriodScheduler(c)
	p := coolingProposal(testNow)

	assert.True(t, s.CanCancelCoolingPeriod(p))

	c.Advance(47*time.Hour + 59*time.Minute)
	assert.True(t, s.CanCancelCoolingPeriod(p))

	c.Advance(time.Minute)
	assert.False(t, s.CanCancelCoolingPeriod(p))
	assert.False(t, s.CanCancelAt(p, c.Now().Add(time.Hour)))
}

func TestCanCancelRequiresCoolingStatus(t *testing.T) {
	s := NewCoolingPeriodScheduler(clock.Fake(testNow))

	for _, status := range []models.ProposalStatus{
		models.StatusPending, models.StatusActive, models.StatusCoolingCancelled, models.StatusAwaitingSignatures,
	} {
		p := coolingProposal(testNow)
		p.Status = status
		assert.False(t, s.CanCancelCoolingPeriod(p), status)
	}

	assert.False(t, s.CanCancelCoolingPeriod(models.ChangeProposal{Status: models.StatusCoolingInProgress}))
}

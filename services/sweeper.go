package services

import (
	"context"
	"log"
	"sync"
	"time"
)

const sweepBatchSize = 100

// Sweeper периодически продвигает предложения с наступившим сроком,
// чтобы уведомления приходили без ожидания следующего запроса.
type Sweeper struct {
	Proposals *ProposalService
	Interval  time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(proposals *ProposalService, interval time.Duration) *Sweeper {
	return &Sweeper{Proposals: proposals, Interval: interval}
}

func (s *Sweeper) Start(ctx context.Context) {
	if s.Interval <= 0 {
		log.Printf("[SWEEP] Фоновый обход отключен")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
	log.Printf("[SWEEP] Фоновый обход запущен, интервал %s", s.Interval)
}

// Stop останавливает обход и ждет завершения текущего прохода.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int {
	total := 0
	for {
		n, err := s.Proposals.PromoteDue(ctx, sweepBatchSize)
		if err != nil {
			log.Printf("[SWEEP] Ошибка обхода: %v", err)
			return total
		}
		total += n
		if n < sweepBatchSize || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		log.Printf("[SWEEP] Продвинуто предложений: %d", total)
	}
	return total
}

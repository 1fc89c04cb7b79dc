package clock

import (
	"sync"
	"time"
)

// Clock единственный источник текущего времени для всех дедлайнов.
// В продакшене используется Real(), в тестах Fake().
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real возвращает часы, основанные на time.Now (всегда в UTC).
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock стоит на месте, пока его не сдвинут через Advance или Set.
// Безопасен для конкурентного использования.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance сдвигает часы вперед на d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

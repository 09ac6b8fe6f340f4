package portfolio

import (
	"context"
	"sync"
	"time"

	"github.com/danyeu/fx"
)

// Memory is a Store kept in process memory.
type Memory struct {
	mu  sync.RWMutex
	l   *ledger
	now func() time.Time
}

// NewMemory returns an empty, uninitialized store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Initialized(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.l != nil, nil
}

func (m *Memory) Reset(_ context.Context, o Opening) error {
	l, err := newLedger(o, m.now())
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.l = l
	return nil
}

func (m *Memory) Holdings(_ context.Context) ([]Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.l == nil {
		return nil, ErrNotInitialized
	}
	return m.l.snapshot(), nil
}

func (m *Memory) Holding(_ context.Context, curr fx.Currency) (fx.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.l == nil {
		return fx.Amount{}, ErrNotInitialized
	}
	return m.l.holding(curr)
}

func (m *Memory) Apply(_ context.Context, t Trade) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.l == nil {
		return Entry{}, ErrNotInitialized
	}
	return m.l.apply(t, m.now())
}

func (m *Memory) History(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.l == nil {
		return nil, ErrNotInitialized
	}
	return m.l.entries(), nil
}

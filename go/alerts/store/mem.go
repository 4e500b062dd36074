package store

import (
	"context"
	"sync"

	"go.yoptima.org/infra/go/alerts"
)

// MemStore is an in-memory alerts.Store for tests. Each operation has an
// injectable error so failure paths (e.g. a delete failing mid-update) can be
// exercised.
type MemStore struct {
	mtx  sync.Mutex
	rows []*alerts.Alert

	GetErr    error
	DeleteErr error
	AppendErr error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Get implements alerts.Store.
func (s *MemStore) Get(_ context.Context, hash string, advertiserID int64, alertType string) ([]*alerts.Alert, error) {
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	rv := []*alerts.Alert{}
	for _, a := range s.rows {
		if a.Hash == hash && a.AdvertiserID == advertiserID && a.Type == alertType {
			rv = append(rv, a.Copy())
		}
	}
	return rv, nil
}

// Delete implements alerts.Store.
func (s *MemStore) Delete(_ context.Context, alertID string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	remaining := s.rows[:0]
	for _, a := range s.rows {
		if a.ID != alertID {
			remaining = append(remaining, a)
		}
	}
	s.rows = remaining
	return nil
}

// Append implements alerts.Store.
func (s *MemStore) Append(_ context.Context, a *alerts.Alert) error {
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.rows = append(s.rows, a.Copy())
	return nil
}

// Rows returns a snapshot of all physical rows, in insertion order.
func (s *MemStore) Rows() []*alerts.Alert {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	rv := make([]*alerts.Alert, 0, len(s.rows))
	for _, a := range s.rows {
		rv = append(rv, a.Copy())
	}
	return rv
}

// Seed adds rows directly, bypassing the error hooks.
func (s *MemStore) Seed(rows ...*alerts.Alert) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, a := range rows {
		s.rows = append(s.rows, a.Copy())
	}
}

// Assert that MemStore implements alerts.Store.
var _ alerts.Store = (*MemStore)(nil)

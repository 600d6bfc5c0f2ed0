package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/matchreport/internal/domain/model"
	"github.com/okian/matchreport/pkg/metrics"
)

// MemoryStore keeps reports in a map guarded by a RWMutex.
// Reports are cloned on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]model.Report
	cfg     settings
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStore{reports: make(map[string]model.Report), cfg: cfg}
}

func (s *MemoryStore) CreateReport(_ context.Context, r model.Report) (model.Report, error) {
	defer observe("create", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	r = r.Clone()
	if r.ID == "" {
		r.ID = s.cfg.newID()
	}
	if _, ok := s.reports[r.ID]; ok {
		return model.Report{}, ErrConflict
	}
	now := s.cfg.now()
	r.CreatedAt, r.UpdatedAt = now, now
	r.Actions = r.SortedActions()
	if r.Stats == nil {
		r.Stats = model.StatBag{}
	}
	s.reports[r.ID] = r
	metrics.UpdateReportsTotal(len(s.reports))
	return r.Clone(), nil
}

func (s *MemoryStore) FetchReport(_ context.Context, id string) (model.Report, error) {
	defer observe("fetch", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return model.Report{}, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) ListReports(_ context.Context, limit int) ([]model.Report, error) {
	defer observe("list", time.Now())
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	out := make([]model.Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateReport(_ context.Context, r model.Report) (model.Report, error) {
	defer observe("update", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[r.ID]
	if !ok {
		return model.Report{}, ErrNotFound
	}
	in := r.Clone()
	cur.PlayerName = in.PlayerName
	cur.Opponent = in.Opponent
	cur.MatchDate = in.MatchDate
	cur.R90Score = in.R90Score
	cur.MinutesPlayed = in.MinutesPlayed
	cur.UpdatedAt = s.touch(cur.UpdatedAt)
	s.reports[r.ID] = cur
	return cur.Clone(), nil
}

func (s *MemoryStore) SaveActions(_ context.Context, id string, actions []model.Action) error {
	defer observe("save_actions", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	cur.Actions = model.Report{Actions: actions}.SortedActions()
	cur.UpdatedAt = s.touch(cur.UpdatedAt)
	s.reports[id] = cur
	return nil
}

func (s *MemoryStore) SaveStats(_ context.Context, id string, bag model.StatBag) error {
	defer observe("save_stats", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	cur.Stats = bag.Clone()
	if cur.Stats == nil {
		cur.Stats = model.StatBag{}
	}
	cur.UpdatedAt = s.touch(cur.UpdatedAt)
	s.reports[id] = cur
	return nil
}

func (s *MemoryStore) DeleteReport(_ context.Context, id string) error {
	defer observe("delete", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	metrics.UpdateReportsTotal(len(s.reports))
	return nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports), nil
}

// touch returns a stamp strictly after prev so every write bumps the version.
func (s *MemoryStore) touch(prev time.Time) time.Time {
	now := s.cfg.now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

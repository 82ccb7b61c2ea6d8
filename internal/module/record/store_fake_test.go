package record

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/simp-lee/recordsvc/internal/domain"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func discardLogger() *slog.Logger {
	return newTestLogger(&bytes.Buffer{})
}

// fakeStore is an in-memory domain.RecordStore. Records keep insertion order
// unless a sort is requested; only sorting by name is supported.
type fakeStore struct {
	mu      sync.Mutex
	records []domain.Record
	nextID  int

	err error // returned by every call when set

	// afterFindMany runs once FindMany has read its page, before it returns.
	afterFindMany func()

	findManyCalls  int
	countCalls     int
	findByIDsCalls [][]string
	lastQuery      domain.ListQuery
	lastUpdate     domain.UpdateSet
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) add(name string) domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := domain.Record{BaseModel: domain.BaseModel{ID: fmt.Sprintf("id-%d", s.nextID)}, Name: name}
	s.records = append(s.records, rec)
	return rec
}

func (s *fakeStore) FindUnique(_ context.Context, id string) (*domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.records {
		if r.ID == id {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindByIDs(_ context.Context, ids []string) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findByIDsCalls = append(s.findByIDsCalls, append([]string(nil), ids...))
	if s.err != nil {
		return nil, s.err
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Record
	for _, r := range s.records {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) matching(filter *domain.RecordFilter) []domain.Record {
	var out []domain.Record
	for _, r := range s.records {
		if filter != nil && filter.Search != nil && *filter.Search != "" {
			term := strings.ToLower(*filter.Search)
			desc := ""
			if r.Description != nil {
				desc = strings.ToLower(*r.Description)
			}
			if !strings.Contains(strings.ToLower(r.Name), term) && !strings.Contains(desc, term) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func (s *fakeStore) FindMany(_ context.Context, q domain.ListQuery) ([]domain.Record, error) {
	s.mu.Lock()
	s.findManyCalls++
	s.lastQuery = q
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	rows := s.matching(q.Filter)
	if col, dir, ok := SortOrder(q.Sort); ok && col == "name" {
		sort.SliceStable(rows, func(i, j int) bool {
			if dir == "desc" {
				return rows[i].Name > rows[j].Name
			}
			return rows[i].Name < rows[j].Name
		})
	}
	var page []domain.Record
	for i := q.Offset; i < len(rows) && len(page) < q.Limit; i++ {
		page = append(page, rows[i])
	}
	hook := s.afterFindMany
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return page, nil
}

func (s *fakeStore) Count(_ context.Context, filter *domain.RecordFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.matching(filter))), nil
}

func (s *fakeStore) Create(_ context.Context, rec *domain.Record) error {
	if s.err != nil {
		return s.err
	}
	*rec = s.add(rec.Name)
	return nil
}

func (s *fakeStore) Update(_ context.Context, id string, set domain.UpdateSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = set
	if s.err != nil {
		return s.err
	}
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		vals := set.Map()
		if v, ok := vals["name"].(string); ok {
			s.records[i].Name = v
		}
		if v, ok := vals["description"].(string); ok {
			s.records[i].Description = &v
		}
		return nil
	}
	return domain.NotFoundError("record", id)
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError("record", id)
}

// snapshotStore adds snapshot support to fakeStore and counts its use.
type snapshotStore struct {
	*fakeStore
	snapshots int
}

func (s *snapshotStore) Snapshot(_ context.Context, fn func(store domain.RecordStore) error) error {
	s.snapshots++
	return fn(s.fakeStore)
}

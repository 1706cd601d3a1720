package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/tranche-vault/pkg/database/query"
	"github.com/code-payments/tranche-vault/pkg/journal"
)

type ById []*journal.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*journal.Record
}

// New returns a new in memory journal.Store
func New() journal.Store {
	return &store{}
}

// Put implements journal.Store.Put
func (s *store) Put(_ context.Context, data *journal.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.findBySignature(data.Signature); item != nil {
		return journal.ErrExists
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	cloned := data.Clone()
	s.records = append(s.records, &cloned)

	return nil
}

// GetBySignature implements journal.Store.GetBySignature
func (s *store) GetBySignature(_ context.Context, signature string) (*journal.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.findBySignature(signature)
	if item == nil {
		return nil, journal.ErrNotFound
	}

	cloned := item.Clone()
	return &cloned, nil
}

// GetAllByVault implements journal.Store.GetAllByVault
func (s *store) GetAllByVault(_ context.Context, vault string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*journal.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.filter(s.findByVault(vault), cursor, limit, direction)
	if len(res) == 0 {
		return nil, journal.ErrNotFound
	}

	cloned := make([]*journal.Record, len(res))
	for i, item := range res {
		copied := item.Clone()
		cloned[i] = &copied
	}
	return cloned, nil
}

// CountByOperation implements journal.Store.CountByOperation
func (s *store) CountByOperation(_ context.Context, vault string, operation journal.Operation) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count uint64
	for _, item := range s.findByVault(vault) {
		if item.Operation == operation {
			count++
		}
	}
	return count, nil
}

func (s *store) findBySignature(signature string) *journal.Record {
	for _, item := range s.records {
		if item.Signature == signature {
			return item
		}
	}
	return nil
}

func (s *store) findByVault(vault string) []*journal.Record {
	var res []*journal.Record
	for _, item := range s.records {
		if item.Vault == vault {
			res = append(res, item)
		}
	}
	return res
}

func (s *store) filter(items []*journal.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*journal.Record {
	var start uint64

	start = 0
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*journal.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if limit > 0 && len(res) >= int(limit) {
		return res[:limit]
	}

	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = 0
	s.records = nil
}

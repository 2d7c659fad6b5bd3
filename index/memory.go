package index

import (
	"context"
	"sort"
	"sync"
)

// MemIndex is an in-memory Client with the same staged-commit semantics as
// the Redis adapter. Tests use it to exercise the consistency gap between a
// save and its index commit without a Redis server.
type MemIndex struct {
	committed map[string]*Record
	pending   []pendingOp
	mu        sync.Mutex

	// UpsertErr, DeleteErr, and CommitErr, when set, are returned by the
	// corresponding operation. Tests use these to inject index failure.
	UpsertErr error
	DeleteErr error
	CommitErr error
}

// NewMemIndex creates an empty in-memory index
func NewMemIndex() *MemIndex {
	return &MemIndex{
		committed: make(map[string]*Record),
	}
}

// Upsert stages a record write
func (m *MemIndex) Upsert(ctx context.Context, record *Record) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, pendingOp{record: record, id: record.ID})
	return nil
}

// Delete stages a record removal
func (m *MemIndex) Delete(ctx context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, pendingOp{id: id})
	return nil
}

// Commit makes all staged operations visible
func (m *MemIndex) Commit(ctx context.Context) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range m.pending {
		if op.record != nil {
			m.committed[op.id] = op.record
		} else {
			delete(m.committed, op.id)
		}
	}
	m.pending = nil
	return nil
}

// Pending returns the number of staged, uncommitted operations
func (m *MemIndex) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Query returns committed records of the given model holding an edge
// (property, target); an empty model matches any type.
func (m *MemIndex) Query(ctx context.Context, model, property, target string) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []*Record
	for _, record := range m.committed {
		if model != "" && record.Model != model {
			continue
		}
		for _, t := range record.Edges[property] {
			if t == target {
				records = append(records, record)
				break
			}
		}
	}
	sortRecords(records)
	return records, nil
}

// QueryInbound returns every committed record with an edge pointing at the
// target.
func (m *MemIndex) QueryInbound(ctx context.Context, target string) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []*Record
	for _, record := range m.committed {
		if record.References(target) {
			records = append(records, record)
		}
	}
	sortRecords(records)
	return records, nil
}

func sortRecords(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
}

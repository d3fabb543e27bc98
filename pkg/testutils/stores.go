package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/getzep/reviewpulse/pkg/models"
)

var (
	ErrInjected = errors.New("injected failure")

	_ models.SourceStore      = &FakeSourceStore{}
	_ models.DestinationStore = &FakeDestinationStore{}
)

// FakeSourceStore holds records in memory. MarkProcessed calls are staged per session
// and only reach the store on Commit. A failed Commit leaves the session open for Rollback.
type FakeSourceStore struct {
	mu sync.Mutex

	Records   []models.SourceRecord
	Processed map[string]bool

	BeginErr  error
	FetchErr  error
	MarkErr   error
	CommitErr error

	Begins    int
	Fetches   int
	Commits   int
	Rollbacks int
	// MarkedIDs holds the id lists of every committed MarkProcessed call.
	MarkedIDs [][]string
}

func NewFakeSourceStore(records ...models.SourceRecord) *FakeSourceStore {
	return &FakeSourceStore{
		Records:   records,
		Processed: make(map[string]bool),
	}
}

func (s *FakeSourceStore) Begin(_ context.Context) (models.SourceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Begins++
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	return &fakeSourceSession{store: s}, nil
}

// Pending returns the records not yet marked processed, in store order.
func (s *FakeSourceStore) Pending() []models.SourceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending()
}

// Add appends a record as if it were inserted by another writer.
func (s *FakeSourceStore) Add(records ...models.SourceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Records = append(s.Records, records...)
}

func (s *FakeSourceStore) pending() []models.SourceRecord {
	var out []models.SourceRecord
	for _, r := range s.Records {
		if !s.Processed[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

type fakeSourceSession struct {
	store  *FakeSourceStore
	staged [][]string
	done   bool
}

func (f *fakeSourceSession) FetchPending(_ context.Context) ([]models.SourceRecord, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.Fetches++
	if f.store.FetchErr != nil {
		return nil, f.store.FetchErr
	}
	return f.store.pending(), nil
}

func (f *fakeSourceSession) MarkProcessed(_ context.Context, ids []string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.store.MarkErr != nil {
		return f.store.MarkErr
	}
	f.staged = append(f.staged, append([]string(nil), ids...))
	return nil
}

func (f *fakeSourceSession) Commit() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.done {
		return nil
	}
	if f.store.CommitErr != nil {
		return f.store.CommitErr
	}
	f.done = true
	f.store.Commits++
	for _, ids := range f.staged {
		for _, id := range ids {
			f.store.Processed[id] = true
		}
		f.store.MarkedIDs = append(f.store.MarkedIDs, ids)
	}
	return nil
}

func (f *fakeSourceSession) Rollback() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.done {
		return nil
	}
	f.done = true
	f.store.Rollbacks++
	return nil
}

// FakeDestinationStore keeps committed rows in memory.
type FakeDestinationStore struct {
	mu sync.Mutex

	Rows []models.PersistedAnnotation

	BeginErr  error
	CommitErr error
	// FailInsertAt fails the nth Insert (1-based) of any session. Zero disables it.
	FailInsertAt int

	Begins    int
	Inserts   int
	Commits   int
	Rollbacks int
}

func NewFakeDestinationStore() *FakeDestinationStore {
	return &FakeDestinationStore{}
}

func (s *FakeDestinationStore) Begin(_ context.Context) (models.DestinationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Begins++
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	return &fakeDestinationSession{store: s}, nil
}

// Committed returns a copy of the committed rows.
func (s *FakeDestinationStore) Committed() []models.PersistedAnnotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PersistedAnnotation(nil), s.Rows...)
}

type fakeDestinationSession struct {
	store  *FakeDestinationStore
	staged []models.PersistedAnnotation
	done   bool
}

func (f *fakeDestinationSession) Insert(_ context.Context, a models.PersistedAnnotation) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.Inserts++
	if f.store.FailInsertAt > 0 && f.store.Inserts == f.store.FailInsertAt {
		return ErrInjected
	}
	f.staged = append(f.staged, a)
	return nil
}

func (f *fakeDestinationSession) Commit() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.done {
		return nil
	}
	if f.store.CommitErr != nil {
		return f.store.CommitErr
	}
	f.done = true
	f.store.Commits++
	f.store.Rows = append(f.store.Rows, f.staged...)
	return nil
}

func (f *fakeDestinationSession) Rollback() error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if f.done {
		return nil
	}
	f.done = true
	f.store.Rollbacks++
	return nil
}

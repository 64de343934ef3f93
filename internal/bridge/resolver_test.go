package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"github.com/leadgenlite/voicebridge/domain/entities"
)

// fakeStore is an in-memory CallRecordRepository shared by the package tests.
type fakeStore struct {
	mu        sync.Mutex
	records   []*entities.CallRecord
	updates   map[string][]entities.CallRecordUpdate
	lookupErr error
	updateErr error
}

func newFakeStore(records ...*entities.CallRecord) *fakeStore {
	return &fakeStore{
		records: records,
		updates: make(map[string][]entities.CallRecordUpdate),
	}
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*entities.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, record := range f.records {
		if record.ID.Hex() == id {
			return record, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetByCallSID(ctx context.Context, callSID string) (*entities.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	for _, record := range f.records {
		if record.CallSID == callSID {
			return record, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetLastByPhoneAndStatus(ctx context.Context, phoneNumber string, status entities.CallStatus) (*entities.CallRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var latest *entities.CallRecord
	for _, record := range f.records {
		if record.PhoneNumber != phoneNumber || record.Status != status {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			latest = record
		}
	}
	return latest, nil
}

func (f *fakeStore) UpdateByID(ctx context.Context, id string, update entities.CallRecordUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[id] = append(f.updates[id], update)
	return nil
}

func (f *fakeStore) updatesFor(id string) []entities.CallRecordUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[id]
}

func TestResolverCacheHit(t *testing.T) {
	store := newFakeStore()
	resolver := NewContextResolver(store, zaptest.NewLogger(t))

	warm := entities.CallContext{
		CallSID:      "CA100",
		RecordID:     "rec100",
		Instructions: "Discuss the renewal",
		Email:        "alice@example.com",
	}
	resolver.Preload(warm)

	got := resolver.Resolve(context.Background(), "CA100", "", "")
	if got != warm {
		t.Errorf("expected cached context by call SID, got %+v", got)
	}

	// The same context must be reachable under the record identifier.
	got = resolver.Resolve(context.Background(), "CA-other", "rec100", "")
	if got.Instructions != warm.Instructions {
		t.Errorf("expected cached context by record ID, got %+v", got)
	}
}

func TestResolverStoreFallbackByRecordID(t *testing.T) {
	id := primitive.NewObjectID()
	store := newFakeStore(&entities.CallRecord{
		ID:              id,
		PhoneNumber:     "+15550001111",
		Email:           "bob@example.com",
		Context:         "renewal",
		CallDescription: "Confirm the annual renewal",
		Status:          entities.CallStatusPending,
	})
	resolver := NewContextResolver(store, zaptest.NewLogger(t))

	got := resolver.Resolve(context.Background(), "CA200", id.Hex(), "")
	if got.Instructions != "Confirm the annual renewal" {
		t.Errorf("expected record instructions, got %q", got.Instructions)
	}
	if got.RecordID != id.Hex() {
		t.Errorf("expected record ID %q, got %q", id.Hex(), got.RecordID)
	}
	if got.Email != "bob@example.com" {
		t.Errorf("expected record email, got %q", got.Email)
	}

	// The hit must be written back under both identifiers: a store failure
	// on the next resolve should not matter.
	store.lookupErr = errors.New("store down")
	again := resolver.Resolve(context.Background(), "CA200", "", "")
	if again.Instructions != got.Instructions {
		t.Errorf("expected cached write-back by call SID, got %+v", again)
	}
	again = resolver.Resolve(context.Background(), "CA-fresh", id.Hex(), "")
	if again.Instructions != got.Instructions {
		t.Errorf("expected cached write-back by record ID, got %+v", again)
	}
}

func TestResolverFallbackOrder(t *testing.T) {
	byCallSID := &entities.CallRecord{
		ID:              primitive.NewObjectID(),
		PhoneNumber:     "+15550002222",
		CallDescription: "Matched by call SID",
		CallSID:         "CA300",
		Status:          entities.CallStatusPending,
	}
	older := &entities.CallRecord{
		ID:              primitive.NewObjectID(),
		PhoneNumber:     "+15550003333",
		CallDescription: "Older completed call",
		Status:          entities.CallStatusCompleted,
		CreatedAt:       time.Now().Add(-2 * time.Hour),
	}
	newer := &entities.CallRecord{
		ID:              primitive.NewObjectID(),
		PhoneNumber:     "+15550003333",
		CallDescription: "Newer completed call",
		Status:          entities.CallStatusCompleted,
		CreatedAt:       time.Now().Add(-1 * time.Hour),
	}
	store := newFakeStore(byCallSID, older, newer)
	resolver := NewContextResolver(store, zaptest.NewLogger(t))

	got := resolver.Resolve(context.Background(), "CA300", "", "+15550003333")
	if got.Instructions != "Matched by call SID" {
		t.Errorf("call SID match should win over destination match, got %q", got.Instructions)
	}

	got = resolver.Resolve(context.Background(), "CA301", "", "+15550003333")
	if got.Instructions != "Newer completed call" {
		t.Errorf("expected most recent completed record, got %q", got.Instructions)
	}
}

func TestResolverDefaultContext(t *testing.T) {
	resolver := NewContextResolver(newFakeStore(), zaptest.NewLogger(t))

	got := resolver.Resolve(context.Background(), "CA400", "", "+15550004444")
	if got.Instructions != entities.DefaultInstructions {
		t.Errorf("expected default instructions, got %q", got.Instructions)
	}
	if got.RecordID != "" {
		t.Errorf("default context should carry no record ID, got %q", got.RecordID)
	}
}

func TestResolverRelease(t *testing.T) {
	resolver := NewContextResolver(newFakeStore(), zaptest.NewLogger(t))

	resolver.Preload(entities.CallContext{
		CallSID:      "CA500",
		RecordID:     "rec500",
		Instructions: "Stale instructions",
	})
	resolver.Release("CA500", "rec500")

	got := resolver.Resolve(context.Background(), "CA500", "rec500", "")
	if got.Instructions != entities.DefaultInstructions {
		t.Errorf("released entries must not be served, got %q", got.Instructions)
	}
	if resolver.cache.Len() == 0 {
		// Resolve writes the default back; only the stale entry must be gone.
		t.Errorf("expected write-back of the default context")
	}
}

package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/leadgenlite/voicebridge/domain/entities"
	"github.com/leadgenlite/voicebridge/domain/repositories"
)

// ContextResolver produces the CallContext for an inbound call, preferring
// its in-memory cache over the durable store. Resolution runs once, at call
// setup; it never sits on the audio relay path.
type ContextResolver struct {
	cache  *ContextCache
	store  repositories.CallRecordRepository
	logger *zap.Logger
}

// NewContextResolver creates a resolver owning a fresh cache.
func NewContextResolver(store repositories.CallRecordRepository, logger *zap.Logger) *ContextResolver {
	return &ContextResolver{
		cache:  NewContextCache(),
		store:  store,
		logger: logger,
	}
}

// Preload warms the cache with a context that is already known, keyed by
// both identifiers it is known under.
func (r *ContextResolver) Preload(callCtx entities.CallContext) {
	r.cache.Put(callCtx.CallSID, callCtx)
	r.cache.Put(callCtx.RecordID, callCtx)
}

// Resolve returns the context for a call. Resolution order: cache hit on the
// call identifier, cache hit on the record identifier, then the store by
// record identifier, by call identifier, and finally the most recently
// completed record for the destination number. A store hit is written back
// into the cache under both identifiers. If nothing matches, a safe default
// context is returned.
func (r *ContextResolver) Resolve(ctx context.Context, callSID, recordID, destination string) entities.CallContext {
	if callCtx, ok := r.cache.Get(callSID); ok {
		r.logger.Debug("Context cache hit", zap.String("call_sid", callSID))
		return callCtx
	}
	if callCtx, ok := r.cache.Get(recordID); ok {
		r.logger.Debug("Context cache hit", zap.String("record_id", recordID))
		return callCtx
	}

	r.logger.Info("Context cache miss, falling back to store",
		zap.String("call_sid", callSID),
		zap.String("record_id", recordID))

	record := r.lookupRecord(ctx, callSID, recordID, destination)

	var callCtx entities.CallContext
	if record != nil {
		callCtx = entities.ContextFromRecord(callSID, record)
	} else {
		callCtx = entities.DefaultCallContext(callSID)
	}

	r.cache.Put(callSID, callCtx)
	r.cache.Put(callCtx.RecordID, callCtx)

	return callCtx
}

// Release removes a finished call's cache entries so a future call reusing
// either identifier cannot see stale instructions.
func (r *ContextResolver) Release(callSID, recordID string) {
	r.cache.Delete(callSID, recordID)
}

func (r *ContextResolver) lookupRecord(ctx context.Context, callSID, recordID, destination string) *entities.CallRecord {
	if recordID != "" {
		record, err := r.store.GetByID(ctx, recordID)
		if err != nil {
			r.logger.Warn("Record lookup by ID failed", zap.String("record_id", recordID), zap.Error(err))
		} else if record != nil {
			return record
		}
	}

	if callSID != "" {
		record, err := r.store.GetByCallSID(ctx, callSID)
		if err != nil {
			r.logger.Warn("Record lookup by call SID failed", zap.String("call_sid", callSID), zap.Error(err))
		} else if record != nil {
			return record
		}
	}

	if destination != "" {
		record, err := r.store.GetLastByPhoneAndStatus(ctx, destination, entities.CallStatusCompleted)
		if err != nil {
			r.logger.Warn("Record lookup by destination failed", zap.String("destination", destination), zap.Error(err))
		} else if record != nil {
			return record
		}
	}

	return nil
}

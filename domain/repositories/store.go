package repositories

import (
	"context"

	"github.com/leadgenlite/voicebridge/domain/entities"
)

// CallRecordRepository defines data access for scheduled call records.
// Lookup methods return (nil, nil) when no record matches.
type CallRecordRepository interface {
	GetByID(ctx context.Context, id string) (*entities.CallRecord, error)
	GetByCallSID(ctx context.Context, callSID string) (*entities.CallRecord, error)
	// GetLastByPhoneAndStatus returns the most recently created record for
	// the destination number with the given status.
	GetLastByPhoneAndStatus(ctx context.Context, phoneNumber string, status entities.CallStatus) (*entities.CallRecord, error)
	UpdateByID(ctx context.Context, id string, update entities.CallRecordUpdate) error
}

package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leadgenlite/voicebridge/domain/entities"
	"github.com/leadgenlite/voicebridge/domain/repositories"
)

type CallRecordRepository struct {
	collection *mongo.Collection
}

// NewCallRecordRepository creates a new MongoDB call record repository
func NewCallRecordRepository(db *mongo.Database) repositories.CallRecordRepository {
	return &CallRecordRepository{
		collection: db.Collection("schedule_calls"),
	}
}

// GetByID implements repositories.CallRecordRepository
func (r *CallRecordRepository) GetByID(ctx context.Context, id string) (*entities.CallRecord, error) {
	if id == "" {
		return nil, errors.New("record ID cannot be empty")
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid record ID format: %w", err)
	}

	var record entities.CallRecord
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No record found, return nil without error
		}
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}

	return &record, nil
}

// GetByCallSID implements repositories.CallRecordRepository
func (r *CallRecordRepository) GetByCallSID(ctx context.Context, callSID string) (*entities.CallRecord, error) {
	if callSID == "" {
		return nil, errors.New("call SID cannot be empty")
	}

	var record entities.CallRecord
	err := r.collection.FindOne(ctx, bson.M{"call_sid": callSID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record by call SID %s: %w", callSID, err)
	}

	return &record, nil
}

// GetLastByPhoneAndStatus implements repositories.CallRecordRepository
func (r *CallRecordRepository) GetLastByPhoneAndStatus(ctx context.Context, phoneNumber string, status entities.CallStatus) (*entities.CallRecord, error) {
	if phoneNumber == "" {
		return nil, errors.New("phone number cannot be empty")
	}

	filter := bson.M{"phone_number": phoneNumber, "status": status}
	opts := options.FindOne().SetSort(bson.M{"created_at": -1})

	var record entities.CallRecord
	err := r.collection.FindOne(ctx, filter, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last record for %s: %w", phoneNumber, err)
	}

	return &record, nil
}

// UpdateByID implements repositories.CallRecordRepository
func (r *CallRecordRepository) UpdateByID(ctx context.Context, id string, update entities.CallRecordUpdate) error {
	if id == "" {
		return errors.New("record ID cannot be empty")
	}

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record ID format: %w", err)
	}

	set := bson.M{}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.Transcript != nil {
		set["transcript"] = *update.Transcript
	}
	if update.CallSID != nil {
		set["call_sid"] = *update.CallSID
	}
	if update.CompletedAt != nil {
		set["completed_at"] = *update.CompletedAt
	}
	if len(set) == 0 {
		return nil
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	// Check if the document was found and updated
	if result.MatchedCount == 0 {
		return fmt.Errorf("record with ID %s not found", id)
	}

	return nil
}

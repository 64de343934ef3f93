package entities

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallStatus represents the lifecycle status of a scheduled call record.
type CallStatus string

const (
	CallStatusPending   CallStatus = "pending"
	CallStatusCompleted CallStatus = "completed"
	CallStatusFailed    CallStatus = "failed"
)

// ActionType represents the outreach channel of a scheduled record.
type ActionType string

const (
	ActionTypeCall  ActionType = "call"
	ActionTypeSMS   ActionType = "sms"
	ActionTypeEmail ActionType = "email"
)

// CallRecord is the durable record of one scheduled outreach, including the
// behavioral instructions the voice agent should follow and, once the call
// has finished, its transcript.
type CallRecord struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VendorID        primitive.ObjectID `json:"vendor_id" bson:"vendor_id,omitempty"`
	PhoneNumber     string             `json:"phone_number" bson:"phone_number"`
	Email           string             `json:"email,omitempty" bson:"email,omitempty"`
	Context         string             `json:"context" bson:"context"`
	CallDescription string             `json:"call_description" bson:"call_description"`
	ScheduledTime   time.Time          `json:"scheduled_time" bson:"scheduled_time"`
	ActionType      ActionType         `json:"action_type" bson:"action_type"`
	Status          CallStatus         `json:"status" bson:"status"`
	Transcript      string             `json:"transcript,omitempty" bson:"transcript,omitempty"`
	CallSID         string             `json:"call_sid,omitempty" bson:"call_sid,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
}

// Validate validates the record data.
func (r *CallRecord) Validate() error {
	if r.PhoneNumber == "" {
		return errors.New("phone_number is required")
	}
	if r.CallDescription == "" {
		return errors.New("call_description is required")
	}
	if r.Status != CallStatusPending && r.Status != CallStatusCompleted && r.Status != CallStatusFailed {
		return errors.New("invalid call status")
	}
	return nil
}

// CallRecordUpdate carries the fields written back to a record at call end.
// Nil fields are left untouched.
type CallRecordUpdate struct {
	Status      *CallStatus
	Transcript  *string
	CallSID     *string
	CompletedAt *time.Time
}

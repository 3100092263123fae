// Package audit records authentication state changes for later inspection.
package audit

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type EventType string

const (
	EventSignUp               EventType = "sign_up"
	EventSignIn               EventType = "sign_in"
	EventSignInFailed         EventType = "sign_in_failed"
	EventSignOut              EventType = "sign_out"
	EventVerificationSent     EventType = "verification_sent"
	EventEmailVerified        EventType = "email_verified"
	EventPasswordResetRequest EventType = "password_reset_requested"
	EventPasswordReset        EventType = "password_reset"
	EventOAuthSignIn          EventType = "oauth_sign_in"
	EventProfileUpdated       EventType = "profile_updated"
	EventAvatarUpdated        EventType = "avatar_updated"
	EventRoleChanged          EventType = "role_changed"
)

// Event is one audit record. Secrets never go in here.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Type      EventType          `bson:"type"`
	UserID    string             `bson:"user_id,omitempty"`
	Email     string             `bson:"email,omitempty"`
	Reason    string             `bson:"reason,omitempty"`
	IPAddress string             `bson:"ip_address,omitempty"`
	UserAgent string             `bson:"user_agent,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Recorder stores audit events. Implementations must not block the caller for long
// and must not surface storage failures.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}

const collectionName = "auth_events"

// MongoRecorder writes events to the auth_events collection.
type MongoRecorder struct {
	col     *mongo.Collection
	logger  *slog.Logger
	timeout time.Duration
}

var _ Recorder = (*MongoRecorder)(nil)

func NewMongoRecorder(db *mongo.Database, logger *slog.Logger) *MongoRecorder {
	return &MongoRecorder{col: db.Collection(collectionName), logger: logger, timeout: 3 * time.Second}
}

func (r *MongoRecorder) Record(ctx context.Context, ev Event) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, ev); err != nil {
		r.logger.WarnContext(ctx, "Failed to record audit event",
			slog.String("type", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}

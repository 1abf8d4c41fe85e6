package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	coll *mongo.Collection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) ports.AuditRepository {
	return &AuditRepository{coll: db.Collection(collectionAudit)}
}

// InsertEvent appends one entry to the auth_events collection.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, auditDocument(event, time.Now()))
	return err
}

func auditDocument(event *domain.AuthEvent, now time.Time) bson.M {
	doc := bson.M{
		"kind":        string(event.Kind),
		"session_id":  event.SessionID,
		"timestamp":   event.Timestamp.UTC(),
		"recorded_at": now.UTC(),
		"remote_ip":   event.RemoteIP,
	}
	if event.UserID != "" {
		doc["user_id"] = event.UserID
		doc["username"] = event.Username
		doc["role"] = string(event.Role)
	}
	if event.Path != "" {
		doc["path"] = event.Path
	}
	if event.Location != "" {
		doc["location"] = event.Location
	}
	return doc
}

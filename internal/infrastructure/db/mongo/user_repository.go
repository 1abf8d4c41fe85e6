package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/futurefundi/portal/internal/api/metrics"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

type UserRepository struct {
	coll *mongo.Collection
	log  zerolog.Logger
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *mongo.Database, log zerolog.Logger) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionUsers), log: log}
}

type mongoSchool struct {
	ID   string `bson:"id"`
	Name string `bson:"name"`
	Code string `bson:"code,omitempty"`
}

type mongoUser struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Username       string             `bson:"username"`
	Email          string             `bson:"email"`
	FirstName      string             `bson:"first_name"`
	LastName       string             `bson:"last_name"`
	PasswordHash   string             `bson:"password_hash"`
	Role           string             `bson:"role"`
	Tenant         string             `bson:"tenant,omitempty"`
	TenantName     string             `bson:"tenant_name,omitempty"`
	TenantCode     string             `bson:"tenant_code,omitempty"`
	AvatarURL      string             `bson:"avatar_url,omitempty"`
	TeacherSchools []mongoSchool      `bson:"teacher_schools,omitempty"`
	IsActive       bool               `bson:"is_active"`
	DateJoined     int64              `bson:"date_joined"`
	UpdatedAt      int64              `bson:"updated_at"`
}

func fromDomainUser(u *domain.User) mongoUser {
	doc := mongoUser{
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Tenant:       u.Tenant,
		TenantName:   u.TenantName,
		TenantCode:   u.TenantCode,
		AvatarURL:    u.AvatarURL,
		IsActive:     u.IsActive,
		DateJoined:   timeToUnix(u.DateJoined),
		UpdatedAt:    timeToUnix(u.UpdatedAt),
	}
	for _, s := range u.TeacherSchools {
		doc.TeacherSchools = append(doc.TeacherSchools, mongoSchool(s))
	}
	return doc
}

// toDomain normalizes the stored role: a document with a role this build
// does not know is treated as a learner.
func (m mongoUser) toDomain() *domain.User {
	role, _ := domain.ParseRoleOrDefault(m.Role)
	return m.withRole(role)
}

func (m mongoUser) withRole(role domain.Role) *domain.User {
	u := &domain.User{
		ID:           m.ID.Hex(),
		Username:     m.Username,
		Email:        m.Email,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PasswordHash: m.PasswordHash,
		Role:         role,
		Tenant:       m.Tenant,
		TenantName:   m.TenantName,
		TenantCode:   m.TenantCode,
		AvatarURL:    m.AvatarURL,
		IsActive:     m.IsActive,
		DateJoined:   unixToTime(m.DateJoined),
		UpdatedAt:    unixToTime(m.UpdatedAt),
	}
	for _, s := range m.TeacherSchools {
		u.TeacherSchools = append(u.TeacherSchools, domain.School(s))
	}
	return u
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := fromDomainUser(user)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// UpdateProfile sets only the non-nil fields and returns the updated document.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update ports.ProfileUpdate) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": profileSet(update, time.Now())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return r.decode(mu), nil
}

func profileSet(update ports.ProfileUpdate, now time.Time) bson.M {
	set := bson.M{"updated_at": now.Unix()}
	if update.FirstName != nil {
		set["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		set["last_name"] = *update.LastName
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.AvatarURL != nil {
		set["avatar_url"] = *update.AvatarURL
	}
	return set
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return r.decode(mu), nil
}

// decode maps a stored user, logging and counting roles that had to fall
// back to the default.
func (r *UserRepository) decode(mu mongoUser) *domain.User {
	role, ok := domain.ParseRoleOrDefault(mu.Role)
	if !ok {
		metrics.UnrecognizedRolesTotal.Inc()
		r.log.Warn().
			Str("user_id", mu.ID.Hex()).
			Str("role", mu.Role).
			Msg("unrecognized role, defaulting to learner")
	}
	return mu.withRole(role)
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
)

type SchoolRepository struct {
	coll *mongo.Collection
}

var _ ports.SchoolRepository = (*SchoolRepository)(nil)

func NewSchoolRepository(db *mongo.Database) *SchoolRepository {
	return &SchoolRepository{coll: db.Collection(collectionSchools)}
}

type mongoSchoolDoc struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
	Code string             `bson:"code"`
}

// FindByCode matches codes case-insensitively; codes are stored upper case.
func (r *SchoolRepository) FindByCode(ctx context.Context, code string) (*domain.School, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.ErrInvalidSchoolCode
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoSchoolDoc
	if err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidSchoolCode
		}
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &domain.School{ID: doc.ID.Hex(), Name: doc.Name, Code: doc.Code}, nil
}

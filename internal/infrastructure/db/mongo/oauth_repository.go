package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openlearn/lms-api/internal/core/domain"
)

const (
	applicationsCollection = "oauth_applications"
	restrictedCollection   = "oauth_restricted_applications"
	tokensCollection       = "oauth_access_tokens"
)

// ApplicationRepository reads OAuth applications and their restricted markers.
// Administrators create both out of band; this API only consults them.
type ApplicationRepository struct {
	apps       *mongo.Collection
	restricted *mongo.Collection
}

func NewApplicationRepository(db *mongo.Database) *ApplicationRepository {
	return &ApplicationRepository{
		apps:       db.Collection(applicationsCollection),
		restricted: db.Collection(restrictedCollection),
	}
}

type mongoApplication struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	ClientID     string             `bson:"client_id"`
	ClientSecret string             `bson:"client_secret"`
	GrantType    string             `bson:"grant_type"`
	UserID       string             `bson:"user_id"`
	CreatedAt    int64              `bson:"created_at"`
}

func (r *ApplicationRepository) FindByName(ctx context.Context, name string) (*domain.Application, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *ApplicationRepository) FindByClientID(ctx context.Context, clientID string) (*domain.Application, error) {
	return r.findOne(ctx, bson.M{"client_id": clientID})
}

func (r *ApplicationRepository) findOne(ctx context.Context, filter bson.M) (*domain.Application, error) {
	var ma mongoApplication
	if err := r.apps.FindOne(ctx, filter).Decode(&ma); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}

	return &domain.Application{
		ID:           ma.ID.Hex(),
		Name:         ma.Name,
		ClientID:     ma.ClientID,
		ClientSecret: ma.ClientSecret,
		GrantType:    ma.GrantType,
		UserID:       ma.UserID,
		CreatedAt:    unixToTime(ma.CreatedAt),
	}, nil
}

func (r *ApplicationRepository) IsRestricted(ctx context.Context, applicationID string) (bool, error) {
	n, err := r.restricted.CountDocuments(ctx, bson.M{"application_id": applicationID})
	if err != nil {
		return false, fmt.Errorf("count restricted markers: %w", err)
	}
	return n > 0, nil
}

// TokenRepository persists issued access tokens, upserting by token string so
// the expiry-forcing transform can safely run more than once per token.
type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(tokensCollection)}
}

type mongoAccessToken struct {
	Token         string   `bson:"_id"`
	UserID        string   `bson:"user_id"`
	ApplicationID string   `bson:"application_id"`
	Scopes        []string `bson:"scopes"`
	Expires       int64    `bson:"expires"`
	CreatedAt     int64    `bson:"created_at"`
}

func (r *TokenRepository) Save(ctx context.Context, token *domain.AccessToken) error {
	doc := mongoAccessToken{
		Token:         token.Token,
		UserID:        token.UserID,
		ApplicationID: token.ApplicationID,
		Scopes:        token.Scopes,
		Expires:       token.Expires.Unix(),
		CreatedAt:     token.CreatedAt.Unix(),
	}

	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"_id": token.Token},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*domain.AccessToken, error) {
	var mt mongoAccessToken
	if err := r.coll.FindOne(ctx, bson.M{"_id": token}).Decode(&mt); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find access token: %w", err)
	}

	return &domain.AccessToken{
		Token:         mt.Token,
		UserID:        mt.UserID,
		ApplicationID: mt.ApplicationID,
		Scopes:        mt.Scopes,
		Expires:       unixToTime(mt.Expires),
		CreatedAt:     unixToTime(mt.CreatedAt),
	}, nil
}

// Package users maps authenticated callers to internal owner records.
package users

import (
	"context"
	"errors"
	"time"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"
	"crm-assistant/internal/store"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "owner:"

// UserStore is the slice of the store the resolver needs.
type UserStore interface {
	FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	UpsertUser(ctx context.Context, u *models.User) error
}

type Resolver struct {
	store  UserStore
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewResolver builds a resolver. rdb may be nil, which disables caching.
func NewResolver(s UserStore, rdb *redis.Client, ttl time.Duration, log logger.Logger) *Resolver {
	return &Resolver{
		store:  s,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "owner-resolver"}),
	}
}

func CacheKey(subject string) string {
	return cacheKeyPrefix + subject
}

// Resolve returns the internal owner id for the caller, creating the user
// row on first sight.
func (r *Resolver) Resolve(ctx context.Context, id models.Identity) (string, error) {
	if id.Subject == "" {
		return "", apperrors.NewUnauthenticatedError()
	}

	if ownerID := r.cached(ctx, id.Subject); ownerID != "" {
		return ownerID, nil
	}

	u, err := r.store.FindUserByExternalID(ctx, id.Subject)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		u = &models.User{
			ExternalID: id.Subject,
			Email:      id.Email,
			FirstName:  id.FirstName,
			LastName:   id.LastName,
		}
		if err := r.store.UpsertUser(ctx, u); err != nil {
			return "", apperrors.NewDatabaseInsertFailedError(err)
		}
		r.logger.Info("provisioned user", map[string]interface{}{
			"subject": id.Subject,
			"userId":  u.ID,
		})
	default:
		return "", apperrors.NewDatabaseQueryFailedError("find user", err)
	}

	r.remember(ctx, id.Subject, u.ID)
	return u.ID, nil
}

func (r *Resolver) cached(ctx context.Context, subject string) string {
	if r.redis == nil {
		return ""
	}
	val, err := r.redis.Get(ctx, CacheKey(subject)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("owner cache read failed", map[string]interface{}{"subject": subject, "error": err.Error()})
		}
		return ""
	}
	return val
}

func (r *Resolver) remember(ctx context.Context, subject, ownerID string) {
	if r.redis == nil {
		return
	}
	if err := r.redis.Set(ctx, CacheKey(subject), ownerID, r.ttl).Err(); err != nil {
		r.logger.Warn("owner cache write failed", map[string]interface{}{"subject": subject, "error": err.Error()})
	}
}

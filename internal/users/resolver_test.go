package users

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/common/logger"
	"crm-assistant/internal/models"
	"crm-assistant/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	users     map[string]*models.User
	findErr   error
	upsertErr error
	finds     int
	upserts   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (f *fakeUserStore) FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	f.finds++
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[externalID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpsertUser(ctx context.Context, u *models.User) error {
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.users[u.ExternalID]; ok {
		u.ID = existing.ID
	} else {
		u.ID = "u-" + u.ExternalID
	}
	f.users[u.ExternalID] = u
	return nil
}

func TestResolve_ProvisionsOnceAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	fs := newFakeUserStore()
	r := NewResolver(fs, rdb, 10*time.Minute, logger.NewTestLogger(t))

	id := models.Identity{Subject: "user_abc", Email: "jane@acme.io"}

	ownerID, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "u-user_abc", ownerID)
	assert.Equal(t, 1, fs.upserts)

	cached, err := mr.Get(CacheKey("user_abc"))
	require.NoError(t, err)
	assert.Equal(t, "u-user_abc", cached)
	assert.Equal(t, 10*time.Minute, mr.TTL(CacheKey("user_abc")))

	again, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, ownerID, again)
	assert.Equal(t, 1, fs.finds, "second call served from cache")
	assert.Equal(t, 1, fs.upserts)
}

func TestResolve_ExistingUserCacheMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	fs := newFakeUserStore()
	fs.users["user_abc"] = &models.User{ID: "u-7", ExternalID: "user_abc"}
	r := NewResolver(fs, rdb, 10*time.Minute, logger.NewTestLogger(t))

	mock.ExpectGet(CacheKey("user_abc")).RedisNil()
	mock.ExpectSet(CacheKey("user_abc"), "u-7", 10*time.Minute).SetVal("OK")

	ownerID, err := r.Resolve(context.Background(), models.Identity{Subject: "user_abc"})
	require.NoError(t, err)
	assert.Equal(t, "u-7", ownerID)
	assert.Zero(t, fs.upserts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_CacheErrorsAreIgnored(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	fs := newFakeUserStore()
	fs.users["user_abc"] = &models.User{ID: "u-7", ExternalID: "user_abc"}
	r := NewResolver(fs, rdb, time.Minute, logger.NewTestLogger(t))

	mock.ExpectGet(CacheKey("user_abc")).SetErr(errors.New("connection refused"))
	mock.ExpectSet(CacheKey("user_abc"), "u-7", time.Minute).SetErr(errors.New("connection refused"))

	ownerID, err := r.Resolve(context.Background(), models.Identity{Subject: "user_abc"})
	require.NoError(t, err)
	assert.Equal(t, "u-7", ownerID)
}

func TestResolve_Errors(t *testing.T) {
	t.Run("no subject", func(t *testing.T) {
		r := NewResolver(newFakeUserStore(), nil, time.Minute, logger.NewTestLogger(t))
		_, err := r.Resolve(context.Background(), models.Identity{})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnauthenticated))
	})

	t.Run("lookup failure", func(t *testing.T) {
		fs := newFakeUserStore()
		fs.findErr = errors.New("db down")
		r := NewResolver(fs, nil, time.Minute, logger.NewTestLogger(t))
		_, err := r.Resolve(context.Background(), models.Identity{Subject: "user_abc"})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeDatabaseQueryFailed))
	})

	t.Run("provision failure", func(t *testing.T) {
		fs := newFakeUserStore()
		fs.upsertErr = errors.New("unique violation")
		r := NewResolver(fs, nil, time.Minute, logger.NewTestLogger(t))
		_, err := r.Resolve(context.Background(), models.Identity{Subject: "user_abc"})
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeDatabaseInsertFailed))
	})
}

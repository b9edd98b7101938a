// Package cache invalidates cached CRM views after writes.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"crm-assistant/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const (
	// Channel carries one message per invalidated path.
	Channel = "crm:revalidate"

	viewKeyPrefix = "view:"
)

// Revalidator marks cached views stale. View renderers own the view:<path>
// keys and subscribe to Channel. Failures never reach the caller.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string)
}

// Message is published on Channel.
type Message struct {
	Path string    `json:"path"`
	At   time.Time `json:"at"`
}

func ViewKey(path string) string {
	return viewKeyPrefix + path
}

type RedisRevalidator struct {
	client *redis.Client
	logger logger.Logger
	now    func() time.Time
}

func NewRedisRevalidator(client *redis.Client, log logger.Logger) *RedisRevalidator {
	return &RedisRevalidator{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "revalidator"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisRevalidator) Revalidate(ctx context.Context, paths ...string) {
	if len(paths) == 0 {
		return
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = ViewKey(p)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("view cache delete failed", map[string]interface{}{"paths": paths, "error": err.Error()})
	}

	at := r.now()
	for _, p := range paths {
		payload, _ := json.Marshal(Message{Path: p, At: at})
		if err := r.client.Publish(ctx, Channel, payload).Err(); err != nil {
			r.logger.Warn("revalidate publish failed", map[string]interface{}{"path": p, "error": err.Error()})
		}
	}

	r.logger.Debug("views revalidated", map[string]interface{}{"paths": paths})
}

// NopRevalidator is used when no cache is configured.
type NopRevalidator struct{}

func (NopRevalidator) Revalidate(context.Context, ...string) {}

package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// HistoryStore mirrors the crash history into a capped redis list,
// most recent first.
type HistoryStore struct {
	client *redis.Client
	key    string
	size   int64
}

func NewHistoryStore(client *redis.Client, key string, size int) *HistoryStore {
	return &HistoryStore{client: client, key: key, size: int64(size)}
}

func (h *HistoryStore) Push(ctx context.Context, entry string) error {
	pipe := h.client.TxPipeline()
	pipe.LPush(ctx, h.key, entry)
	pipe.LTrim(ctx, h.key, 0, h.size-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (h *HistoryStore) Load(ctx context.Context) ([]string, error) {
	return h.client.LRange(ctx, h.key, 0, h.size-1).Result()
}

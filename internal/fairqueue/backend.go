package fairqueue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// Backend moves raw items in and out of named queues.
type Backend interface {
	Length(ctx context.Context, q store.Queue) (int, error)
	Items(ctx context.Context, q store.Queue) ([]json.RawMessage, error)
	Push(ctx context.Context, q store.Queue, items ...json.RawMessage) error
	// Pop removes the oldest item, or returns services.ErrQueueEmpty.
	Pop(ctx context.Context, q store.Queue) (json.RawMessage, error)
}

// StoreBackend keeps items in the annotation store's queues, addressed by id.
type StoreBackend struct {
	Store store.QueueStore
}

var _ Backend = StoreBackend{}

func (b StoreBackend) Length(ctx context.Context, q store.Queue) (int, error) {
	return b.Store.QueueLength(ctx, q.ID)
}

func (b StoreBackend) Items(ctx context.Context, q store.Queue) ([]json.RawMessage, error) {
	return b.Store.QueueItems(ctx, q.ID)
}

func (b StoreBackend) Push(ctx context.Context, q store.Queue, items ...json.RawMessage) error {
	return b.Store.Enqueue(ctx, q.ID, items...)
}

func (b StoreBackend) Pop(ctx context.Context, q store.Queue) (json.RawMessage, error) {
	return b.Store.Dequeue(ctx, q.ID)
}

// RedisBackend keeps items in Redis lists named prefix+queue name.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend wraps a connected client.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string, db int, prefix string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrTransient, "fairqueue", "connect redis", addr, err)
	}
	return NewRedisBackend(client, prefix), nil
}

// Close releases the client connection.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) key(q store.Queue) string {
	return b.prefix + q.Name
}

func (b *RedisBackend) Length(ctx context.Context, q store.Queue) (int, error) {
	n, err := b.client.LLen(ctx, b.key(q)).Result()
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "fairqueue", "redis length", q.Name, err)
	}
	return int(n), nil
}

func (b *RedisBackend) Items(ctx context.Context, q store.Queue) ([]json.RawMessage, error) {
	values, err := b.client.LRange(ctx, b.key(q), 0, -1).Result()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fairqueue", "redis items", q.Name, err)
	}
	items := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		items = append(items, json.RawMessage(v))
	}
	return items, nil
}

func (b *RedisBackend) Push(ctx context.Context, q store.Queue, items ...json.RawMessage) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]any, 0, len(items))
	for _, item := range items {
		if !json.Valid(item) {
			return services.Wrap(services.ErrValidation, "fairqueue", "redis push", "item is not valid json", nil)
		}
		values = append(values, string(item))
	}
	if err := b.client.RPush(ctx, b.key(q), values...).Err(); err != nil {
		return services.Wrap(services.ErrTransient, "fairqueue", "redis push", q.Name, err)
	}
	return nil
}

func (b *RedisBackend) Pop(ctx context.Context, q store.Queue) (json.RawMessage, error) {
	value, err := b.client.LPop(ctx, b.key(q)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, services.ErrQueueEmpty
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fairqueue", "redis pop", q.Name, err)
	}
	return json.RawMessage(value), nil
}

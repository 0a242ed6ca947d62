// Package redis provides Redis-backed persistence. Definitions and directory
// entries live in hashes keyed by id; each task is its own JSON string so
// updates can be guarded with WATCH.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "workflowhub"

// Persistence implements the persistence.Persistence interface on Redis.
type Persistence struct {
	client goredis.UniversalClient
	logger *slog.Logger
	keys   keys

	directoryRepo *DirectoryRepository
	processRepo   *ProcessRepository
	formRepo      *FormRepository
	taskRepo      *TaskRepository
}

// NewPersistence connects to the Redis server at url (redis://[:password@]host:port/db).
func NewPersistence(ctx context.Context, logger *slog.Logger, url string) (*Persistence, error) {
	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger = logger.With("module", "redis_persistence")
	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return newPersistence(client, logger, defaultPrefix), nil
}

func newPersistence(client goredis.UniversalClient, logger *slog.Logger, prefix string) *Persistence {
	k := keys{prefix: prefix}

	return &Persistence{
		client:        client,
		logger:        logger,
		keys:          k,
		directoryRepo: &DirectoryRepository{client: client, keys: k},
		processRepo:   &ProcessRepository{table: hashTable[models.Process]{client: client, key: k.processes()}},
		formRepo:      &FormRepository{table: hashTable[models.Form]{client: client, key: k.forms()}},
		taskRepo:      &TaskRepository{client: client, logger: logger, keys: k},
	}
}

// Close closes the Redis client.
func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) DirectoryRepository() persistence.DirectoryRepository {
	return p.directoryRepo
}

func (p *Persistence) ProcessRepository() persistence.ProcessRepository {
	return p.processRepo
}

func (p *Persistence) FormRepository() persistence.FormRepository {
	return p.formRepo
}

func (p *Persistence) TaskRepository() persistence.TaskRepository {
	return p.taskRepo
}

type keys struct {
	prefix string
}

func (k keys) users() string       { return k.prefix + ":directory:users" }
func (k keys) departments() string { return k.prefix + ":directory:departments" }
func (k keys) roles() string       { return k.prefix + ":directory:roles" }
func (k keys) processes() string   { return k.prefix + ":processes" }
func (k keys) forms() string       { return k.prefix + ":forms" }
func (k keys) taskIndex() string   { return k.prefix + ":tasks" }
func (k keys) task(id string) string {
	return k.prefix + ":task:" + id
}

// hashTable stores JSON values of T as fields of a single hash.
type hashTable[T any] struct {
	client goredis.UniversalClient
	key    string
}

func (h hashTable[T]) all(ctx context.Context) ([]*T, error) {
	values, err := h.client.HGetAll(ctx, h.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", h.key, err)
	}

	items := make([]*T, 0, len(values))

	for id, raw := range values {
		var item T
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s %s: %w", h.key, id, err)
		}

		items = append(items, &item)
	}

	return items, nil
}

// get returns nil without error when the field does not exist.
func (h hashTable[T]) get(ctx context.Context, id string) (*T, error) {
	raw, err := h.client.HGet(ctx, h.key, id).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", h.key, id, err)
	}

	var item T
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", h.key, id, err)
	}

	return &item, nil
}

func (h hashTable[T]) set(ctx context.Context, id string, item *T) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", h.key, id, err)
	}

	if err := h.client.HSet(ctx, h.key, id, raw).Err(); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", h.key, id, err)
	}

	return nil
}

// remove reports false when the field did not exist.
func (h hashTable[T]) remove(ctx context.Context, id string) (bool, error) {
	removed, err := h.client.HDel(ctx, h.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", h.key, id, err)
	}

	return removed > 0, nil
}

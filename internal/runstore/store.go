// Package runstore keeps full-pipeline run records for a bounded time. The
// backend is process memory or redis.
package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dealflow/internal/config"
	"dealflow/internal/pipeline"
)

const (
	keyPrefix  = "dealflow:run:"
	defaultTTL = 24 * time.Hour
)

// Store is the byte-level key/value contract both backends satisfy.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RunState string

const (
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
)

type Run struct {
	ID         string                   `json:"id"`
	DealID     string                   `json:"deal_id"`
	State      RunState                 `json:"state"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
	Result     *pipeline.PipelineResult `json:"result,omitempty"`
}

// Runs stores Run records as JSON under a fixed key prefix.
type Runs struct {
	Store Store
	TTL   time.Duration
}

// New picks the backend from cfg. The redis password comes from secrets.
func New(cfg config.RunStoreConfig, redisPassword string) (*Runs, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return &Runs{Store: NewMemoryStore(), TTL: ttl}, nil
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("run_store.redis_addr is required for the redis backend")
		}
		return &Runs{
			Store: NewRedisStore(&redis.Options{Addr: cfg.RedisAddr, Password: redisPassword, DB: cfg.RedisDB}),
			TTL:   ttl,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported run_store.backend %q", cfg.Backend)
	}
}

func (r *Runs) Start(ctx context.Context, dealID string) (*Run, error) {
	run := &Run{ID: uuid.NewString(), DealID: dealID, State: RunRunning, StartedAt: time.Now().UTC()}
	if err := r.Save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Finish records the outcome. A nil error means the run succeeded.
func (r *Runs) Finish(ctx context.Context, run *Run, result *pipeline.PipelineResult, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Result = result
	run.State = RunSucceeded
	if runErr != nil {
		run.State = RunFailed
	}
	return r.Save(ctx, run)
}

func (r *Runs) Save(ctx context.Context, run *Run) error {
	if r == nil || r.Store == nil {
		return nil
	}
	b, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if err := r.Store.Set(ctx, keyPrefix+run.ID, b, r.TTL); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns (nil, nil) for unknown or expired runs.
func (r *Runs) Get(ctx context.Context, id string) (*Run, error) {
	if r == nil || r.Store == nil {
		return nil, nil
	}
	b, found, err := r.Store.Get(ctx, keyPrefix+strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	var run Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// Close releases the redis client when one is in use.
func (r *Runs) Close() error {
	if r == nil {
		return nil
	}
	if rs, ok := r.Store.(*RedisStore); ok {
		return rs.Client.Close()
	}
	return nil
}

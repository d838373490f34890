package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/switchboard/internal/adapters/memory"
	"github.com/aretw0/switchboard/internal/adapters/postgres"
	"github.com/aretw0/switchboard/internal/adapters/redis"
	"github.com/aretw0/switchboard/pkg/persistence/middleware"
	"github.com/aretw0/switchboard/pkg/ports"
)

// leadBackend is an opened lead store with the locker that guards it.
type leadBackend struct {
	store  ports.LeadStore
	locker ports.DistributedLocker
	close  func() error
}

// openLeads connects the store named by kind: memory, redis or postgres.
// Redis and Postgres read their address from the environment. Notes are
// always redacted; personal fields are encrypted when a key is set.
func openLeads(ctx context.Context, kind string) (*leadBackend, error) {
	mws, err := leadMiddleware()
	if err != nil {
		return nil, err
	}
	b, err := openBackend(ctx, kind)
	if err != nil {
		return nil, err
	}
	b.store = middleware.Chain(b.store, mws...)
	return b, nil
}

func leadMiddleware() ([]middleware.Middleware, error) {
	mws := []middleware.Middleware{middleware.NewRedactionMiddleware(middleware.DefaultRedactions)}
	raw := os.Getenv(envLeadKey)
	if raw == "" {
		return mws, nil
	}
	key, err := middleware.ParseKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", envLeadKey, err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: key}
	for _, old := range strings.Split(os.Getenv(envLeadOldKeys), ",") {
		if strings.TrimSpace(old) == "" {
			continue
		}
		k, err := middleware.ParseKey(old)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envLeadOldKeys, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, k)
	}
	return append(mws, middleware.NewEncryptionMiddleware(cfg)), nil
}

func openBackend(ctx context.Context, kind string) (*leadBackend, error) {
	switch kind {
	case "memory":
		return &leadBackend{
			store:  memory.New(),
			locker: memory.NewLocker(),
			close:  func() error { return nil },
		}, nil
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     envOr(envRedisAddr, "localhost:6379"),
			Password: envOr(envRedisPassword, ""),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return &leadBackend{
			store:  redis.NewFromClient(client),
			locker: redis.NewLocker(client, "switchboard:"),
			close:  client.Close,
		}, nil
	case "postgres":
		url := envOr(envDatabaseURL, "")
		if url == "" {
			return nil, fmt.Errorf("%s is not set", envDatabaseURL)
		}
		store, err := postgres.New(ctx, url)
		if err != nil {
			return nil, err
		}
		// Postgres has no lock service here; serialize upserts in process.
		return &leadBackend{
			store:  store,
			locker: memory.NewLocker(),
			close:  store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q (want memory, redis or postgres)", kind)
	}
}

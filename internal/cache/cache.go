package cache

import (
	"context"
	"strings"
	"time"
)

// ResponseCache stores computed analytics responses. Get decodes a hit into
// dest and reports whether the key was present.
type ResponseCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type NoopCache struct{}

func (NoopCache) Get(_ context.Context, _ string, _ any) (bool, error) {
	return false, nil
}

func (NoopCache) Set(_ context.Context, _ string, _ any, _ time.Duration) error {
	return nil
}

// Key builds a namespaced cache key such as "analytics:sales:u1:week".
// Empty parts are kept so that positions stay stable.
func Key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString("analytics:")
	b.WriteString(kind)
	for _, part := range parts {
		b.WriteByte(':')
		b.WriteString(strings.ReplaceAll(part, ":", "_"))
	}
	return b.String()
}

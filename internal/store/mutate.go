package store

import (
	"context"
	"log/slog"

	"github.com/NewsPortal/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Mutate issues exactly one write. On success every entry matching one of
// the invalidate keys (equal or prefixed by it) is marked stale, the
// invalidation is broadcast and the server's response is returned. On
// failure the error is returned and the cache is left untouched. Cached
// values are never patched locally; readers refetch from the server.
func Mutate[T any](ctx context.Context, s *Store, write func(context.Context) (T, error), invalidate ...Key) (T, error) {
	resource := "unknown"
	if len(invalidate) > 0 {
		resource = invalidate[0].Resource()
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "store.mutate")
	span.SetAttributes(attribute.String("resource", resource))
	defer span.End()

	result, err := write(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.Mutations.WithLabelValues(resource, "error").Inc()
		var zero T
		return zero, err
	}
	metrics.Mutations.WithLabelValues(resource, "success").Inc()

	targets := make([]Key, 0, len(invalidate))
	for _, k := range invalidate {
		if k.Enabled() {
			targets = append(targets, k)
		}
	}
	if len(targets) == 0 {
		return result, nil
	}

	marked := s.invalidate(targets, "local")
	span.SetAttributes(attribute.Int("invalidated", marked))

	if b := s.cfg.broadcaster; b != nil {
		if err := b.Broadcast(ctx, targets); err != nil {
			slog.Warn("Failed to broadcast invalidation", "targets", targets, "error", err)
		}
	}
	return result, nil
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/NewsPortal/cmd/server/factory"
	"github.com/NewsPortal/internal/app"
	"github.com/NewsPortal/internal/infra/queue"
	"github.com/NewsPortal/internal/infra/tracing"
	"github.com/NewsPortal/internal/store"
	transport "github.com/NewsPortal/internal/transport/http"
	"github.com/NewsPortal/pkg/config"
	"github.com/NewsPortal/pkg/logging"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.New(os.Stdout, cfg.LogLevel))

	fx.New(
		fx.Supply(cfg),
		fx.Provide(
			// Infrastructure
			fx.Annotate(
				factory.NewInstanceID,
				fx.ResultTags(`name:"instance_id"`),
			),
			factory.NewMongoClient,
			factory.NewSessionRepository,
			fx.Annotate(
				factory.NewInvalidationProducer,
				fx.ParamTags(``, `name:"instance_id"`),
			),
			fx.Annotate(
				factory.NewInvalidationConsumer,
				fx.ParamTags(``, `name:"instance_id"`),
			),
			factory.NewBackendClient,
			factory.NewStore,

			// Services
			factory.NewPortal,
			factory.NewAuthService,
			factory.NewWarmer,

			// HTTP Server
			factory.NewHandler,
			transport.NewHTTPServer,
		),
		fx.Invoke(
			SetupTracer,
			WaitForReady, // Block until dependencies are ready
			RegisterHooks,
			StartServer,
		),
	).Run()
}

// --- Invokers ---

func RegisterHooks(lc fx.Lifecycle, warmer *app.Warmer, consumer *queue.KafkaConsumer, s *store.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if consumer != nil {
				go func() {
					defer close(done)
					consumer.Start(ctx, s)
				}()
			} else {
				close(done)
			}
			go warmer.Start(ctx)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			warmer.Stop()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func SetupTracer(lc fx.Lifecycle, cfg *config.Config) error {
	ctx := context.Background()
	shutdown, err := tracing.InitTracer(ctx, cfg.OTelServiceName)
	if err != nil {
		slog.Error("Failed to initialize tracer", "error", err)
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Info("Shutting down tracer provider")
			return shutdown(ctx)
		},
	})
	return nil
}

// WaitForReady blocks until all dependencies are ready.
func WaitForReady(
	cfg *config.Config,
	mongoClient *mongo.Client,
) error {
	ctx := context.Background()
	waiter := app.NewReadinessWaiter(
		mongoClient,
		cfg.KafkaBrokers,
		cfg.KafkaInvalidationTopic,
	)
	return waiter.WaitForDependencies(ctx)
}

func StartServer(lc fx.Lifecycle, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				slog.Info("Starting portal server", "address", server.Addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("HTTP server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

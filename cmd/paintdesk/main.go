// Command paintdesk runs the customer-service chat backend: an HTTP API in
// front of the agent orchestrator.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearcoat/paintdesk/config"
	"github.com/clearcoat/paintdesk/history"
	"github.com/clearcoat/paintdesk/orchestrator"
	"github.com/clearcoat/paintdesk/pkg/logging"
	"github.com/clearcoat/paintdesk/pkg/telemetry"
	"github.com/clearcoat/paintdesk/server"
)

func main() {
	if err := run(); err != nil {
		logging.Logger().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings := config.Load()
	if err := settings.Validate(); err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "paintdesk",
		Environment: settings.Environment,
		Disable:     settings.DisableTelemetry,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	orch, err := orchestrator.Build(ctx, settings)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := orch.Shutdown(ctx); err != nil {
			logger.Error("orchestrator shutdown failed", "error", err)
		}
	}()

	chatLog, closeChatLog, err := buildChatLog(ctx, settings)
	if err != nil {
		// The chat log is an outer concern; run without it.
		logger.Warn("chat history disabled", "error", err)
	}
	if closeChatLog != nil {
		defer closeChatLog()
	}

	srvConfig := server.DefaultConfig()
	srvConfig.Addr = settings.HTTPAddr
	srv := server.New(orch, chatLog, srvConfig)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http shutdown failed", "error", err)
	}
	return nil
}

// buildChatLog opens the Mongo-backed chat history store on its own client.
// Returns a nil ChatLog when Mongo is not configured.
func buildChatLog(ctx context.Context, settings *config.Settings) (server.ChatLog, func(), error) {
	if settings.MongoURI == "" {
		return nil, nil, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		return nil, nil, err
	}

	store, err := history.NewStore(client, &history.Config{
		Database:   settings.MongoDatabase,
		Collection: "chat_history",
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return store, closeFn, nil
}

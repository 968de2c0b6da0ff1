// Command ingest loads policy and reference documents from a directory into
// the knowledge collection used by the knowledge agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clearcoat/paintdesk/catalog"
	"github.com/clearcoat/paintdesk/config"
	"github.com/clearcoat/paintdesk/ingest"
	"github.com/clearcoat/paintdesk/pkg/logging"
)

func main() {
	dir := flag.String("dir", "./docs", "directory of .html/.txt/.md documents to ingest")
	flag.Parse()

	if err := run(*dir); err != nil {
		logging.Logger().Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(dir string) error {
	logger := logging.WithComponent("ingest")
	settings := config.Load()
	if settings.MongoURI == "" {
		return fmt.Errorf("PAINTDESK_MONGODB_URI is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())

	catConfig := catalog.DefaultConfig()
	catConfig.Database = settings.MongoDatabase
	cat, err := catalog.NewStore(client, catConfig)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}

	n, err := ingest.NewLoader(cat).Run(ctx, dir)
	if err != nil {
		return err
	}
	logger.Info("ingest complete", "documents", n, "dir", dir)
	return nil
}

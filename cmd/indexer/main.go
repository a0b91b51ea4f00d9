package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/stratalake/bucket-indexer/internal/config"
	"github.com/stratalake/bucket-indexer/internal/consumer"
	"github.com/stratalake/bucket-indexer/internal/extract"
	"github.com/stratalake/bucket-indexer/internal/manifest"
	"github.com/stratalake/bucket-indexer/internal/metrics"
	"github.com/stratalake/bucket-indexer/internal/objstore"
	"github.com/stratalake/bucket-indexer/internal/ops"
	"github.com/stratalake/bucket-indexer/internal/pipeline"
	"github.com/stratalake/bucket-indexer/internal/pkg/logger"
	"github.com/stratalake/bucket-indexer/internal/pkg/retry"
	"github.com/stratalake/bucket-indexer/internal/search"
)

func newBackend(cfg config.SearchConfig, policy retry.Policy) (search.Backend, error) {
	switch cfg.Backend {
	case "elastic":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("search backend %q requires an endpoint", cfg.Backend)
		}
		return search.NewElastic(cfg, policy), nil
	case "bleve":
		return search.NewBleve(cfg.BlevePath)
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	if cfg.Queue.URL == "" {
		log.Fatal("queue.url (or QUEUE_URL) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s3Client, err := objstore.NewClient(ctx, cfg.Storage.AWSRegion, cfg.Storage.GetAWSProfile(), cfg.Storage.UserAgent)
	if err != nil {
		log.Fatalf("Failed to build storage client: %v", err)
	}
	store := objstore.New(s3Client, retry.Default())

	backend, err := newBackend(cfg.Search, retry.Default())
	if err != nil {
		log.Fatalf("Failed to build search backend: %v", err)
	}

	m := metrics.New()
	pipe := pipeline.New(
		store,
		manifest.New(store, cfg.Manifest),
		extract.New(store, cfg.Indexing),
		backend,
		cfg.Indexing,
		m,
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	cons := consumer.New(sqs.NewFromConfig(awsCfg), cfg.Queue, pipe, m)

	opsServer := ops.NewServer(pipe)
	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	go func() {
		log.Printf("ops server listening on %s", addr)
		if err := opsServer.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ops server: %v", err)
		}
	}()

	cons.Start(ctx)
	opsServer.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down indexer...")

	opsServer.SetReady(false)
	cons.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("ops server shutdown: %v", err)
	}
}

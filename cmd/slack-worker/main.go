// Command slack-worker drains the Redis queue filled by the redis backend and
// posts each payload to Slack.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/kart-io/slackhub/pkg/backend"
	"github.com/kart-io/slackhub/pkg/config"
	"github.com/kart-io/slackhub/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("slack-worker: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("slack-worker", flag.ContinueOnError)
	configFile := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env", ".env", "dotenv file loaded before SLACK_* variables are read")
	once := fs.Bool("once", false, "deliver what is queued, then exit")
	deliverVia := fs.String("deliver", config.BackendHTTP, "backend jobs are delivered through")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := []config.Option{}
	if *configFile != "" {
		opts = append(opts, config.WithFile(*configFile))
	}
	opts = append(opts, config.WithDotEnv(*envFile))

	cfg, err := config.New(opts...)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return errors.NewConfigError("redis.addr is required")
	}
	if *deliverVia == config.BackendRedis {
		return errors.NewConfigError("cannot deliver queued jobs back into the queue")
	}

	logger := cfg.GetLogger()

	target, err := backend.New(*deliverVia, cfg, logger)
	if err != nil {
		return err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = client.Close() }()

	if err := client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrQueueFailed, "failed to connect to redis")
	}

	worker := backend.NewWorker(client, cfg.Redis.Key, target, logger)

	if *once {
		n, err := worker.Drain(ctx)
		if err != nil {
			return err
		}
		stats := worker.Stats()
		fmt.Fprintf(stdout, "handled %d jobs (%d delivered, %d failed)\n", n, stats.Processed, stats.Failed)
		return nil
	}

	return worker.Run(ctx)
}

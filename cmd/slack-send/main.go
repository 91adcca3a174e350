// Command slack-send renders a message template and sends it to Slack.
//
//	slack-send -template deploy.slack -templates ./templates -context '{"service":"api"}'
//	slack-send -template deploy.slack -templates ./templates -context @ctx.json -dry-run -out payload.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/natefinch/atomic"

	"github.com/kart-io/slackhub/pkg/backend"
	"github.com/kart-io/slackhub/pkg/config"
	"github.com/kart-io/slackhub/pkg/slack"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("slack-send: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("slack-send", flag.ContinueOnError)
	name := fs.String("template", "", "template name to render (required)")
	templates := fs.String("templates", "", "directory templates are loaded from")
	rawContext := fs.String("context", "{}", "template context as JSON, or @file to read it from a file")
	configFile := fs.String("config", "", "YAML configuration file")
	envFile := fs.String("env", ".env", "dotenv file loaded before SLACK_* variables are read")
	dryRun := fs.Bool("dry-run", false, "print the payload instead of sending it")
	out := fs.String("out", "", "with -dry-run, write the payload to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("-template is required")
	}

	data, err := parseContext(*rawContext)
	if err != nil {
		return err
	}

	opts := []config.Option{}
	if *configFile != "" {
		opts = append(opts, config.WithFile(*configFile))
	}
	opts = append(opts, config.WithDotEnv(*envFile))
	if *templates != "" {
		opts = append(opts, config.WithTemplateDir(*templates))
	}

	cfg, err := config.New(opts...)
	if err != nil {
		return err
	}

	var clientOpts []slack.ClientOption
	if *dryRun {
		clientOpts = append(clientOpts, slack.WithBackend(backend.DisabledBackend{}))
	}
	client, err := slack.New(cfg, clientOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if !*dryRun {
		return client.SendMessage(ctx, *name, data)
	}

	payload, err := client.BuildPayload(ctx, *name, data)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')

	if *out == "" {
		_, err = stdout.Write(encoded)
		return err
	}
	if err := atomic.WriteFile(*out, bytes.NewReader(encoded)); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(stdout, "Payload written to %s\n", *out)
	return nil
}

func parseContext(raw string) (map[string]any, error) {
	body := []byte(raw)
	if path, ok := strings.CutPrefix(raw, "@"); ok {
		var err error
		body, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read context: %w", err)
		}
	}

	data := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parse context: %w", err)
	}
	return data, nil
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/slackhub/pkg/backend"
)

func TestRun_Once(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	queue := backend.NewRedisBackendWithClient(client, "slackhub:messages", nil)
	require.NoError(t, queue.Send(context.Background(), "https://hooks.slack.com/x", map[string]string{"payload": `{"text":"hi"}`}))

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "worker.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(fmt.Sprintf("redis:\n  addr: %s\n", mr.Addr())), 0o600))

	backend.Default.Reset()
	t.Cleanup(backend.Default.Reset)

	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-config", cfgFile,
		"-env", filepath.Join(dir, "none.env"),
		"-deliver", "memory",
		"-once",
	}, &stdout)
	require.NoError(t, err)

	assert.Equal(t, "handled 1 jobs (1 delivered, 0 failed)\n", stdout.String())
	msgs := backend.Default.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "https://hooks.slack.com/x", msgs[0].URL)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "none.env")
	withAddr := filepath.Join(dir, "addr.yaml")
	require.NoError(t, os.WriteFile(withAddr, []byte("redis:\n  addr: 127.0.0.1:1\n"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{name: "no redis addr", args: []string{"-env", env}},
		{name: "deliver into queue", args: []string{"-env", env, "-config", withAddr, "-deliver", "redis"}},
		{name: "unknown deliver backend", args: []string{"-env", env, "-config", withAddr, "-deliver", "fax"}},
		{name: "redis unreachable", args: []string{"-env", env, "-config", withAddr, "-once"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "no redis addr" && os.Getenv("SLACK_REDIS_ADDR") != "" {
				t.Skip("SLACK_REDIS_ADDR is set in the environment")
			}
			assert.Error(t, run(context.Background(), tt.args, &bytes.Buffer{}))
		})
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp-distribuidos-2c2025/measurements/dispatcher"
)

const measurements = "Bergen;9.6\nAmsterdam;2.0\nBergen;-1.2\nAmsterdam;4.0\nBergen;3.0\n"

type result struct {
	stdout string
	stderr string
	err    error
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(ctx context.Context, stdin string, args ...string) result {
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestAggregateFile(t *testing.T) {
	path := writeInput(t, "measurements.txt", measurements)

	for _, workers := range []string{"1", "3", "8"} {
		t.Run("workers="+workers, func(t *testing.T) {
			res := execute(context.Background(), "", path, "--workers", workers)

			require.NoError(t, res.err)
			assert.Equal(t, "{Amsterdam=2.0/3.0/4.0, Bergen=-1.2/3.8/9.6}\n", res.stdout)
			assert.Contains(t, res.stderr, "[INFO] Client: Summary: 5 lines")
		})
	}
}

func TestAggregateStdin(t *testing.T) {
	res := execute(context.Background(), measurements, "-", "--format", "lines", "--log-level", "quiet")

	require.NoError(t, res.err)
	assert.Equal(t, "Amsterdam=2.0/3.0/4.0\nBergen=-1.2/3.8/9.6\n", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestMalformedLinesDoNotFailRun(t *testing.T) {
	path := writeInput(t, "measurements.txt", "Amsterdam;2.0\nno separator\nBergen;warm\nAmsterdam;4.0\n")

	res := execute(context.Background(), "", path, "--workers", "2", "--log-level", "warn")

	require.NoError(t, res.err)
	assert.Equal(t, "{Amsterdam=2.0/3.0/4.0}\n", res.stdout)
	assert.Contains(t, res.stderr, "[WARN]")
	assert.Contains(t, res.stderr, "no separator")
	assert.Contains(t, res.stderr, "Bergen;warm")
}

func TestMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	res := execute(context.Background(), "", path)

	var openErr *StreamOpenError
	require.ErrorAs(t, res.err, &openErr)
	assert.Equal(t, path, openErr.Path)
	assert.ErrorIs(t, res.err, os.ErrNotExist)
	assert.Empty(t, res.stdout)
}

func TestDirectoryIsNotAnInput(t *testing.T) {
	res := execute(context.Background(), "", t.TempDir())

	var openErr *StreamOpenError
	assert.ErrorAs(t, res.err, &openErr)
	assert.Empty(t, res.stdout)
}

func TestInvalidEncodingAbortsWithoutOutput(t *testing.T) {
	path := writeInput(t, "measurements.txt", "Amsterdam;2.0\nBad\xff;1.0\nBergen;3.0\n")

	res := execute(context.Background(), "", path)

	var readErr *dispatcher.StreamReadError
	require.ErrorAs(t, res.err, &readErr)
	assert.Equal(t, 2, readErr.Line)
	assert.ErrorIs(t, res.err, dispatcher.ErrInvalidEncoding)
	assert.Empty(t, res.stdout)
}

func TestCancelledRunProducesNoOutput(t *testing.T) {
	path := writeInput(t, "measurements.txt", measurements)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := execute(ctx, "", path)

	assert.True(t, errors.Is(res.err, context.Canceled))
	assert.Empty(t, res.stdout)
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	input := writeInput(t, "measurements.txt", measurements)
	configPath := writeInput(t, "aggregator.yaml", "workers: 2\nformat: csv\nlog_level: quiet\n")

	res := execute(context.Background(), "", input, "--config", configPath)
	require.NoError(t, res.err)
	assert.Equal(t, "key,min,mean,max\nAmsterdam,2.0,3.0,4.0\nBergen,-1.2,3.8,9.6\n", res.stdout)

	res = execute(context.Background(), "", input, "--config", configPath, "--format", "lines")
	require.NoError(t, res.err)
	assert.Equal(t, "Amsterdam=2.0/3.0/4.0\nBergen=-1.2/3.8/9.6\n", res.stdout)
}

func TestInvalidConfiguration(t *testing.T) {
	path := writeInput(t, "measurements.txt", measurements)

	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "no workers", args: []string{"--workers", "0"}, errMsg: "workers"},
		{name: "negative queue depth", args: []string{"--queue-depth", "-4"}, errMsg: "queue_depth"},
		{name: "empty batches", args: []string{"--batch-size", "0"}, errMsg: "batch_size"},
		{name: "unknown format", args: []string{"--format", "xml"}, errMsg: "format"},
		{name: "unknown log level", args: []string{"--log-level", "chatty"}, errMsg: "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(context.Background(), "", append([]string{path}, tt.args...)...)

			assert.ErrorContains(t, res.err, tt.errMsg)
			assert.Empty(t, res.stdout)
		})
	}
}

func TestRequiresExactlyOneInput(t *testing.T) {
	assert.Error(t, execute(context.Background(), "").err)
	assert.Error(t, execute(context.Background(), "", "a.txt", "b.txt").err)
}

func TestMetricsServerDuringRun(t *testing.T) {
	path := writeInput(t, "measurements.txt", measurements)

	res := execute(context.Background(), "", path, "--metrics-addr", "127.0.0.1:0")

	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "HealthServer: Listening on 127.0.0.1:")
	assert.Contains(t, res.stderr, "HealthServer: Stopped")
}

func TestPublishFailureKeepsLocalOutput(t *testing.T) {
	path := writeInput(t, "measurements.txt", measurements)
	t.Setenv("RABBITMQ_HOST", "127.0.0.1")
	t.Setenv("RABBITMQ_PORT", "1")
	t.Setenv("RABBITMQ_MAX_RETRIES", "2")
	t.Setenv("RABBITMQ_RETRY_INTERVAL", "10ms")

	res := execute(context.Background(), "", path, "--publish")

	assert.ErrorContains(t, res.err, "failed to connect to RabbitMQ after 2 retries")
	assert.Equal(t, "{Amsterdam=2.0/3.0/4.0, Bergen=-1.2/3.8/9.6}\n", res.stdout)
	assert.Contains(t, res.stderr, "Results were not published")
}

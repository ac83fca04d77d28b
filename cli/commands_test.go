package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"playlist2podcast/config"
	"playlist2podcast/feed"
	"playlist2podcast/storage"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.RunContext(context.Background(), append([]string{"playlist2podcast"}, args...))
	return out.String(), err
}

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	podcasts := filepath.Join(root, "podcasts")
	path := filepath.Join(root, "config.yaml")
	body := "podcasts_path: " + podcasts + "\nhost_base_url: http://h\npodcasts:\n  demo: https://example.com/list\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, podcasts
}

func TestStatusCommand(t *testing.T) {
	cfgPath, podcasts := writeTestConfig(t)

	out, err := runCLI(t, "--config", cfgPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No podcasts synced yet.")

	store, err := storage.NewJSONStore(config.DefaultStateFile(podcasts))
	require.NoError(t, err)
	ok := storage.NewPodcastState("demo", "demo", "https://example.com/list")
	ok.Complete(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), 12, 1<<20)
	require.NoError(t, store.PutState(context.Background(), ok))
	bad := storage.NewPodcastState("broken", "broken", "https://example.com/gone")
	bad.Begin("c1", time.Now())
	bad.Fail(assert.AnError)
	require.NoError(t, store.PutState(context.Background(), bad))

	// status reads while the writer still holds the lock.
	out, err = runCLI(t, "-c", cfgPath, "status")
	require.NoError(t, store.Close())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "PODCAST"))
	assert.Contains(t, lines[1], "broken")
	assert.Contains(t, lines[1], "error")
	assert.Contains(t, lines[1], "never")
	assert.Contains(t, lines[2], "demo")
	assert.Contains(t, lines[2], "idle")
	assert.Contains(t, lines[2], "12")
}

func TestCheckCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "podcast.xml")
	doc := &feed.Document{
		Channel: feed.Channel{Title: "Demo Show", Description: "d", Link: "http://h"},
		Entries: []feed.Entry{
			{ID: "1", Title: "One", Link: "http://h/1", Enclosure: feed.Enclosure{URL: "http://h/1", Length: 1, Type: "audio/webm"}},
			{ID: "2", Title: "Two", Link: "http://h/2", Enclosure: feed.Enclosure{URL: "http://h/2", Length: 2, Type: "audio/webm"}},
		},
	}
	require.NoError(t, doc.Write(path))

	out, err := runCLI(t, "check", path)
	require.NoError(t, err)
	assert.Equal(t, "Demo Show: 2 entries (rss)\n", out)

	_, err = runCLI(t, "check")
	assert.Error(t, err)
}

func TestRunCommand_BadConfig(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "once")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger_WritesToStdout(t *testing.T) {
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Action = func(c *cli.Context) error {
		logger, err := newLogger(c, &config.Config{LogLevel: "info"})
		if err != nil {
			return err
		}
		logger.Debug("hidden")
		logger.Info("cycle finished")
		return nil
	}

	require.NoError(t, app.Run([]string{"playlist2podcast"}))
	assert.Contains(t, out.String(), "cycle finished")
	assert.NotContains(t, out.String(), "hidden")
	assert.Empty(t, errOut.String())

	out.Reset()
	require.NoError(t, app.Run([]string{"playlist2podcast", "--log-level", "debug"}))
	assert.Contains(t, out.String(), "hidden")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

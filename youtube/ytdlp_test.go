package youtube

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeYtdlp writes a shell script standing in for yt-dlp and returns its path.
func fakeYtdlp(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp needs a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func newTestYtdlp(t *testing.T, body string) (*Ytdlp, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	y := NewYtdlp(logger)
	y.Path = fakeYtdlp(t, body)
	return y, hook
}

func TestFetchArgs(t *testing.T) {
	args := fetchArgs("/data/demo", "https://example.com/playlist?list=PL1", FetchOptions{}, nil)

	assert.Equal(t, []string{
		"--download-archive", filepath.Join("/data/demo", "downloaded.txt"),
		"-o", filepath.Join("/data/demo", "%(title)s.%(ext)s"),
		"--ignore-errors",
		"-f", "bestaudio/best",
		"--write-info-json",
		"--no-progress",
		"--newline",
		"https://example.com/playlist?list=PL1",
	}, args)
}

func TestFetchArgs_DateAfterAndExtra(t *testing.T) {
	args := fetchArgs("/data/demo", "X", FetchOptions{DateAfter: "20230101"}, []string{"--cookies", "c.txt"})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--dateafter 20230101")
	assert.Contains(t, joined, "--cookies c.txt")
	assert.Equal(t, "X", args[len(args)-1], "playlist URL must be the last argument")
}

func TestParseFetchOutput(t *testing.T) {
	stdout := strings.Join([]string{
		"[youtube:tab] Extracting URL: https://example.com/playlist?list=PL1",
		"[download] Downloading playlist: Demo Show",
		"[download] Downloading item 1 of 3",
		"[info] Writing video metadata as JSON to: /data/demo/One.info.json",
		"[download] Destination: /data/demo/One.webm",
		"[download] Downloading item 2 of 3",
		"[download] abc123: has already been recorded in the archive",
		"[download] Downloading item 3 of 3",
		"[download] Destination: /data/demo/Three.webm",
		"[download] Finished downloading playlist: Demo Show",
	}, "\n")

	result, seen := parseFetchOutput(stdout)

	assert.True(t, seen)
	assert.Equal(t, 2, result.Downloaded)
	assert.Equal(t, 1, result.Archived)
	assert.Equal(t, []string{"/data/demo/One.webm", "/data/demo/Three.webm"}, result.Files)
}

func TestParseFetchOutput_AllArchived(t *testing.T) {
	stdout := strings.Join([]string{
		"[download] Downloading playlist: Demo Show",
		"[download] a: has already been recorded in the archive",
		"[download] b: has already been recorded in the archive",
		"[download] Finished downloading playlist: Demo Show",
	}, "\n")

	result, seen := parseFetchOutput(stdout)

	assert.True(t, seen)
	assert.Zero(t, result.Downloaded, "a fully recorded ledger must not download anything")
	assert.Equal(t, 2, result.Archived)
}

func TestClassifyStderr(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"missing playlist", "ERROR: [youtube:tab] PL1: The playlist does not exist.", ErrPlaylistNotFound},
		{"http 404", "ERROR: Unable to download webpage: HTTP Error 404: Not Found", ErrPlaylistNotFound},
		{"unsupported", "ERROR: Unsupported URL: https://example.com/", ErrInvalidURL},
		{"rate limited", "ERROR: HTTP Error 429: Too Many Requests", ErrRateLimited},
		{"timeout", "ERROR: Unable to download webpage: The read operation timed out", ErrNetworkTimeout},
		{"missing channel", "ERROR: [youtube:tab] @gone: This channel does not exist.", ErrPlaylistNotFound},
		{"private playlist", "ERROR: [youtube:tab] PL2: This playlist is private", ErrPlaylistNotFound},
		{"ffmpeg missing", "ERROR: Postprocessing: ffprobe and ffmpeg not found. Please install or provide the path", nil},
		{"missing file", "ERROR: unable to open for writing: cookies.txt does not exist", nil},
		{"unknown", "ERROR: something else", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStderr(tt.stderr))
		})
	}
}

func TestYtdlp_Probe(t *testing.T) {
	y, _ := newTestYtdlp(t, `cat <<'EOF'
{"_type": "playlist", "id": "PL1", "title": "Demo Show", "uploader": "Demo Channel",
 "webpage_url": "https://example.com/playlist?list=PL1", "description": "",
 "thumbnails": [{"url": "https://img/a.jpg", "width": 10, "height": 10}]}
EOF`)

	info, err := y.Probe(context.Background(), "https://example.com/playlist?list=PL1")
	require.NoError(t, err)

	assert.True(t, info.IsPlaylist())
	assert.Equal(t, "Demo Show", info.Title)
	assert.Equal(t, "Demo Channel", info.Uploader)
	require.Len(t, info.Thumbnails, 1)
	assert.Equal(t, 100, info.Thumbnails[0].Area())
}

func TestYtdlp_ProbeMissingTitle(t *testing.T) {
	y, _ := newTestYtdlp(t, `echo '{"_type": "playlist", "id": "PL1"}'`)

	_, err := y.Probe(context.Background(), "X")

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "probe", fetchErr.Op)
}

func TestYtdlp_ProbeNotFound(t *testing.T) {
	y, _ := newTestYtdlp(t, `echo "ERROR: [youtube:tab] PL1: The playlist does not exist." >&2
exit 1`)

	_, err := y.Probe(context.Background(), "X")

	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestYtdlp_NotInstalled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	y := NewYtdlp(logger)
	y.Path = filepath.Join(t.TempDir(), "does-not-exist")

	_, err := y.Probe(context.Background(), "X")

	assert.ErrorIs(t, err, ErrYtdlpNotInstalled)
}

func TestYtdlp_FetchPassesArguments(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	t.Setenv("FAKE_YTDLP_ARGS", argsFile)
	y, _ := newTestYtdlp(t, `printf '%s\n' "$@" > "$FAKE_YTDLP_ARGS"
echo "[download] Downloading playlist: Demo"
echo "[download] Finished downloading playlist: Demo"`)

	dir := t.TempDir()
	result, err := y.Fetch(context.Background(), dir, "X", FetchOptions{DateAfter: "20240101"})
	require.NoError(t, err)
	assert.Zero(t, result.Downloaded)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, fetchArgs(dir, "X", FetchOptions{DateAfter: "20240101"}, nil), args)
}

func TestYtdlp_FetchToleratesItemErrors(t *testing.T) {
	y, hook := newTestYtdlp(t, `echo "[download] Downloading playlist: Demo"
echo "[download] Destination: /tmp/demo/One.webm"
echo "ERROR: [youtube] xyz: Video unavailable" >&2
echo "[download] Finished downloading playlist: Demo"
exit 1`)

	result, err := y.Fetch(context.Background(), t.TempDir(), "X", FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Downloaded)
	assert.Equal(t, 1, result.ItemErrors)

	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "Video unavailable") {
			warned = true
		}
	}
	assert.True(t, warned, "item errors should be logged as warnings")
}

func TestYtdlp_FetchPlaylistFailure(t *testing.T) {
	y, _ := newTestYtdlp(t, `echo "ERROR: Unsupported URL: X" >&2
exit 1`)

	_, err := y.Fetch(context.Background(), t.TempDir(), "X", FetchOptions{})

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "fetch", fetchErr.Op)
	assert.Equal(t, "X", fetchErr.Playlist)
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestYtdlp_FetchTimeout(t *testing.T) {
	y, _ := newTestYtdlp(t, `echo "[download] Downloading playlist: Demo"
exec sleep 5`)
	y.Timeout = 100 * time.Millisecond

	_, err := y.Fetch(context.Background(), t.TempDir(), "X", FetchOptions{})

	assert.True(t, errors.Is(err, ErrNetworkTimeout), "got %v", err)
}

func TestIsTransient(t *testing.T) {
	wrap := func(err error) error { return &FetchError{Op: "fetch", Playlist: "X", Err: err} }

	assert.True(t, IsTransient(wrap(ErrRateLimited)))
	assert.True(t, IsTransient(wrap(ErrNetworkTimeout)))
	assert.False(t, IsTransient(wrap(ErrPlaylistNotFound)))
	assert.False(t, IsTransient(wrap(ErrYtdlpNotInstalled)))
	assert.False(t, IsTransient(nil))
}

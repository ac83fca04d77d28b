// Package youtube drives yt-dlp to probe playlists and fetch their items as audio.
package youtube

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultYtdlpPath = "yt-dlp"

	// ArchiveFile is the ledger of fetched item IDs kept inside each podcast directory.
	ArchiveFile = "downloaded.txt"
	// OutputTemplate names each media file after its title.
	OutputTemplate = "%(title)s.%(ext)s"
	// AudioFormat selects the best audio-only stream, falling back to the best muxed one.
	AudioFormat = "bestaudio/best"
)

// Ytdlp runs yt-dlp as a subprocess.
type Ytdlp struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration

	// ExtraArgs are additional arguments passed before the playlist URL.
	ExtraArgs []string

	log logrus.FieldLogger
}

// NewYtdlp creates a yt-dlp runner that logs through log.
func NewYtdlp(log logrus.FieldLogger) *Ytdlp {
	return &Ytdlp{
		Path: defaultYtdlpPath,
		log:  log.WithField("component", "ytdlp"),
	}
}

// FetchOptions configures a playlist fetch.
type FetchOptions struct {
	// DateAfter excludes items uploaded before this bound. Accepts YYYYMMDD
	// or a yt-dlp relative date such as "now-2weeks". Empty means no bound.
	DateAfter string
}

// FetchResult summarizes one fetch run as reported by yt-dlp.
type FetchResult struct {
	// Files are the media paths yt-dlp wrote during this run.
	Files []string
	// Downloaded is the number of new media files.
	Downloaded int
	// Archived is the number of items skipped because the ledger lists them.
	Archived int
	// ItemErrors is the number of per-item errors yt-dlp reported and ignored.
	ItemErrors int
}

// Probe queries playlist metadata without downloading anything.
func (y *Ytdlp) Probe(ctx context.Context, playlistURL string) (*Info, error) {
	args := []string{"-J", "--flat-playlist", "--no-warnings"}
	args = append(args, y.ExtraArgs...)
	args = append(args, playlistURL)

	stdout, stderr, err := y.run(ctx, args)
	if err != nil {
		return nil, &FetchError{Op: "probe", Playlist: playlistURL, Err: y.classify(ctx, err, stderr)}
	}

	info, err := ParseInfo([]byte(stdout))
	if err != nil {
		return nil, &FetchError{Op: "probe", Playlist: playlistURL, Err: err}
	}
	if info.Title == "" {
		return nil, &FetchError{Op: "probe", Playlist: playlistURL, Err: fmt.Errorf("metadata has no title")}
	}
	return info, nil
}

// Fetch downloads every item of the playlist that the ledger in dir does not
// list yet. Per-item failures are tolerated; an error is returned only when
// yt-dlp could not process the playlist as a whole.
func (y *Ytdlp) Fetch(ctx context.Context, dir, playlistURL string, opts FetchOptions) (*FetchResult, error) {
	args := fetchArgs(dir, playlistURL, opts, y.ExtraArgs)

	stdout, stderr, err := y.run(ctx, args)
	result, playlistSeen := parseFetchOutput(stdout)

	itemErrors := errorLines(stderr)
	for _, line := range itemErrors {
		y.log.WithField("playlist", playlistURL).Warn(line)
	}

	if err != nil {
		if playlistSeen && ctx.Err() == nil && !errors.Is(err, ErrNetworkTimeout) {
			result.ItemErrors = len(itemErrors)
			return result, nil
		}
		return result, &FetchError{Op: "fetch", Playlist: playlistURL, Err: y.classify(ctx, err, stderr)}
	}
	result.ItemErrors = len(itemErrors)
	return result, nil
}

// fetchArgs builds the yt-dlp command line for a playlist fetch into dir.
func fetchArgs(dir, playlistURL string, opts FetchOptions, extra []string) []string {
	args := []string{
		"--download-archive", filepath.Join(dir, ArchiveFile),
		"-o", filepath.Join(dir, OutputTemplate),
		"--ignore-errors",
		"-f", AudioFormat,
		"--write-info-json",
		"--no-progress",
		"--newline",
	}
	if opts.DateAfter != "" {
		args = append(args, "--dateafter", opts.DateAfter)
	}
	args = append(args, extra...)
	return append(args, playlistURL)
}

// parseFetchOutput reads yt-dlp's stdout. The second return value reports
// whether yt-dlp got as far as iterating the playlist.
func parseFetchOutput(stdout string) (*FetchResult, bool) {
	result := &FetchResult{}
	playlistSeen := false

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "[download] Downloading playlist:"),
			strings.HasPrefix(line, "[download] Finished downloading playlist"):
			playlistSeen = true
		case strings.HasPrefix(line, "[download] Destination: "):
			path := strings.TrimPrefix(line, "[download] Destination: ")
			if !strings.HasSuffix(path, InfoExt) {
				result.Files = append(result.Files, path)
				result.Downloaded++
			}
		case strings.Contains(line, "has already been recorded in the archive"):
			result.Archived++
		}
	}
	return result, playlistSeen
}

func errorLines(stderr string) []string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			lines = append(lines, line)
		}
	}
	return lines
}

func (y *Ytdlp) run(ctx context.Context, args []string) (string, string, error) {
	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, y.path(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	y.log.WithField("args", strings.Join(args, " ")).Debug("running yt-dlp")
	err := cmd.Run()
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		err = ErrNetworkTimeout
	}
	return stdout.String(), stderr.String(), err
}

// classify turns a failed invocation into the most specific error available.
func (y *Ytdlp) classify(ctx context.Context, err error, stderr string) error {
	var execErr *exec.Error
	switch {
	case errors.Is(err, ErrNetworkTimeout):
		return ErrNetworkTimeout
	case errors.As(err, &execErr), errors.Is(err, fs.ErrNotExist):
		return ErrYtdlpNotInstalled
	case errors.Is(ctx.Err(), context.Canceled):
		return context.Canceled
	}
	if sentinel := classifyStderr(stderr); sentinel != nil {
		return sentinel
	}
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		return fmt.Errorf("yt-dlp failed: %w", err)
	}
	return fmt.Errorf("yt-dlp failed: %w: %s", err, msg)
}

func (y *Ytdlp) path() string {
	if y.Path != "" {
		return y.Path
	}
	return defaultYtdlpPath
}

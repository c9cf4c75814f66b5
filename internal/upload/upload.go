package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/livereps/internal/ingest"
)

// Sender delivers one export to the server.
type Sender interface {
	SendAlphaCSV(ctx context.Context, data []byte) (*ingest.Result, error)
}

// Stats summarizes an upload run.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int
	Result        ingest.Result
}

// Uploader sends export files that the server has not accepted yet.
type Uploader struct {
	sender Sender
	state  *StateDB
	server string
	log    *slog.Logger
}

func New(sender Sender, state *StateDB, server string, log *slog.Logger) *Uploader {
	return &Uploader{sender: sender, state: state, server: server, log: log}
}

// Run uploads each path in order. A file whose content was already accepted
// by this server is skipped. Failures are counted and the run continues; the
// returned error reports whether any file failed.
func (u *Uploader) Run(ctx context.Context, paths []string) (*Stats, error) {
	stats := &Stats{FilesTotal: len(paths)}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			u.log.Error("reading export", "path", p, "error", err)
			stats.FilesErrored++
			continue
		}
		hash := HashBytes(data)
		done, err := u.state.IsUploaded(u.server, hash)
		if err != nil {
			return stats, fmt.Errorf("checking upload state: %w", err)
		}
		if done {
			u.log.Debug("export already uploaded", "path", p)
			stats.FilesSkipped++
			continue
		}

		res, err := u.sender.SendAlphaCSV(ctx, data)
		if err != nil {
			u.log.Error("uploading export", "path", p, "error", err)
			stats.FilesErrored++
			continue
		}
		if err := u.state.MarkUploaded(u.server, hash, int64(len(data))); err != nil {
			return stats, fmt.Errorf("recording upload: %w", err)
		}
		stats.FilesUploaded++
		stats.Result.SessionsReceived += res.SessionsReceived
		stats.Result.SessionsInserted += res.SessionsInserted
		stats.Result.SessionsSkipped += res.SessionsSkipped
		stats.Result.SetsReceived += res.SetsReceived
		stats.Result.SetsInserted += res.SetsInserted
		stats.Result.WarmupsIgnored += res.WarmupsIgnored
		u.log.Info("export uploaded", "path", p, "sessions_inserted", res.SessionsInserted)
	}
	if stats.FilesErrored > 0 {
		return stats, fmt.Errorf("%d of %d exports failed", stats.FilesErrored, stats.FilesTotal)
	}
	return stats, nil
}

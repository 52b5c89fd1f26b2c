// Package backup snapshots the conversation store file on a fixed
// schedule, keeps the most recent snapshots locally, and mirrors the
// snapshot set to a git remote as a best effort.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"refurbot/core/logger"
	"log/slog"
)

const component = "backup"

// RetentionCount is the number of local snapshots kept after pruning.
const RetentionCount = 5

const (
	snapshotPrefix = "refurbyte_"
	snapshotSuffix = ".db"
)

// ErrSourceMissing marks a run skipped because the store file does not
// exist yet. It is a skip, not a failure.
var ErrSourceMissing = errors.New("backup: no source file")

// CopyError aborts a run: without a local snapshot there is nothing to
// prune or push.
type CopyError struct {
	Err error
}

func (e *CopyError) Error() string { return fmt.Sprintf("backup copy: %v", e.Err) }
func (e *CopyError) Unwrap() error { return e.Err }

// PushError reports a failed remote mirror. The run still counts as a
// local success; the snapshot and pruning stand.
type PushError struct {
	Err error
}

func (e *PushError) Error() string { return fmt.Sprintf("backup push: %v", e.Err) }
func (e *PushError) Unwrap() error { return e.Err }

// RemotePusher ships the snapshot directory to a remote archive as one
// atomic stage-commit-push sequence.
type RemotePusher interface {
	Push(ctx context.Context, dir string, when time.Time) error
}

// Result summarizes one rotation run.
type Result struct {
	Skipped  bool
	Snapshot string
	Pruned   int
	Kept     int
	PushErr  error
}

// Service performs rotation runs against one store file.
type Service struct {
	source string
	dir    string
	pusher RemotePusher
	now    func() time.Time
}

// NewService builds a rotation service. pusher may be nil to disable the
// remote mirror.
func NewService(source, dir string, pusher RemotePusher) *Service {
	return &Service{
		source: source,
		dir:    dir,
		pusher: pusher,
		now:    time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Run executes one rotation: snapshot, prune, push. A missing source is
// a logged skip reported as ErrSourceMissing; a failed copy aborts the
// run; a failed push is reported in the Result but does not fail the run.
func (s *Service) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	if _, err := os.Stat(s.source); err != nil {
		if os.IsNotExist(err) {
			logger.Info(ctx, component, "backup.skip",
				slog.String("status", "skip"),
				slog.String("path", s.source),
				slog.String("cause", "no source"),
			)
			return Result{Skipped: true}, ErrSourceMissing
		}
		return Result{}, &CopyError{Err: fmt.Errorf("stat source: %w", err)}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, &CopyError{Err: fmt.Errorf("create backup dir: %w", err)}
	}

	when := s.now()
	name := snapshotPrefix + strconv.FormatInt(when.UnixMilli(), 10) + snapshotSuffix
	dest := filepath.Join(s.dir, name)
	if err := copyFile(s.source, dest); err != nil {
		logger.Error(ctx, component, "backup.copy",
			slog.String("status", "fail"),
			slog.String("path", dest),
			slog.String("err", err.Error()),
		)
		return Result{}, &CopyError{Err: err}
	}

	pruned, kept, err := s.prune(ctx)
	if err != nil {
		// Pruning trouble is logged but the snapshot itself succeeded.
		logger.Warn(ctx, component, "backup.prune",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}

	res := Result{Snapshot: dest, Pruned: pruned, Kept: kept}

	if s.pusher != nil {
		if pushErr := s.pusher.Push(ctx, s.dir, when); pushErr != nil {
			res.PushErr = &PushError{Err: pushErr}
			logger.Error(ctx, component, "backup.push",
				slog.String("status", "fail"),
				slog.String("cause", "remote mirror; local snapshot kept"),
				slog.String("err", pushErr.Error()),
			)
		}
	}

	logger.Info(ctx, component, "backup.run",
		slog.String("status", "ok"),
		slog.String("snapshot", name),
		slog.Int("pruned", res.Pruned),
		slog.Int("kept", res.Kept),
		slog.Bool("pushed", s.pusher != nil && res.PushErr == nil),
		slog.Duration("duration", logger.Took(start)),
	)
	return res, nil
}

// prune deletes snapshots beyond RetentionCount, oldest first, ordered
// by file modification time rather than filename so a clock adjustment
// cannot resurrect stale snapshots.
func (s *Service) prune(ctx context.Context) (pruned, kept int, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read backup dir: %w", err)
	}

	type snapshot struct {
		name    string
		modTime time.Time
	}
	var snapshots []snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		snapshots = append(snapshots, snapshot{name: name, modTime: info.ModTime()})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].modTime.After(snapshots[j].modTime)
	})

	for i := RetentionCount; i < len(snapshots); i++ {
		path := filepath.Join(s.dir, snapshots[i].name)
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn(ctx, component, "backup.prune",
				slog.String("status", "fail"),
				slog.String("path", path),
				slog.String("err", rmErr.Error()),
			)
			continue
		}
		pruned++
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, component, "backup.prune",
				slog.String("status", "ok"),
				slog.String("path", path),
			)
		}
	}

	kept = len(snapshots) - pruned
	return pruned, kept, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	return out.Close()
}

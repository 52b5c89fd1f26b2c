package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	calls []time.Time
	dirs  []string
	fail  error
}

func (f *fakePusher) Push(_ context.Context, dir string, when time.Time) error {
	f.calls = append(f.calls, when)
	f.dirs = append(f.dirs, dir)
	return f.fail
}

func writeSource(t *testing.T, dir, content string) string {
	t.Helper()
	src := filepath.Join(dir, "refurbyte.db")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o644))
	return src
}

func listSnapshots(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func snapshotName(ts time.Time) string {
	return "refurbyte_" + strconv.FormatInt(ts.UnixMilli(), 10) + ".db"
}

func TestRunCopiesSourceByteForByte(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "sqlite bytes here")
	backupDir := filepath.Join(root, "backups")

	when := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(src, backupDir, nil).WithClock(func() time.Time { return when })

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.False(t, res.Skipped)
	require.Equal(t, filepath.Join(backupDir, snapshotName(when)), res.Snapshot)

	data, err := os.ReadFile(res.Snapshot)
	require.NoError(t, err)
	require.Equal(t, "sqlite bytes here", string(data))
}

func TestRunSkipsWhenSourceMissing(t *testing.T) {
	root := t.TempDir()
	svc := NewService(filepath.Join(root, "missing.db"), filepath.Join(root, "backups"), nil)

	res, err := svc.Run(context.Background())
	require.ErrorIs(t, err, ErrSourceMissing)
	require.True(t, res.Skipped)

	_, statErr := os.Stat(filepath.Join(root, "backups"))
	require.True(t, os.IsNotExist(statErr), "skip must not create the backup dir")
}

func TestRetentionKeepsFiveNewest(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "data")
	backupDir := filepath.Join(root, "backups")

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc := NewService(src, backupDir, nil).WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	const runs = 8
	for i := 0; i < runs; i++ {
		_, err := svc.Run(context.Background())
		require.NoError(t, err)
		// mtime ordering drives pruning; keep the stamps apart
		time.Sleep(5 * time.Millisecond)
	}

	names := listSnapshots(t, backupDir)
	require.Len(t, names, RetentionCount)

	want := make([]string, 0, RetentionCount)
	for minute := runs - RetentionCount + 1; minute <= runs; minute++ {
		want = append(want, snapshotName(base.Add(time.Duration(minute)*time.Minute)))
	}
	sort.Strings(want)
	require.Equal(t, want, names, "survivors must be the five most recent snapshots")
}

func TestRetentionIgnoresForeignFiles(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "data")
	backupDir := filepath.Join(root, "backups")
	require.NoError(t, os.MkdirAll(backupDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(backupDir, "README.txt"), []byte("keep"), 0o644))

	svc := NewService(src, backupDir, nil)
	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(backupDir, "README.txt"))
	require.NoError(t, statErr, "non-snapshot files must survive pruning")
}

func TestPushFailureStillLocalSuccess(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "data")
	backupDir := filepath.Join(root, "backups")

	pusher := &fakePusher{fail: errors.New("remote unreachable")}
	svc := NewService(src, backupDir, pusher)

	res, err := svc.Run(context.Background())
	require.NoError(t, err, "remote failure must not fail the run")
	require.Error(t, res.PushErr)

	var pushErr *PushError
	require.True(t, errors.As(res.PushErr, &pushErr))
	require.Len(t, listSnapshots(t, backupDir), 1, "local snapshot stands")
}

func TestPushReceivesBackupDirAndRunTime(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "data")
	backupDir := filepath.Join(root, "backups")

	when := time.Date(2026, 8, 2, 3, 4, 5, 0, time.UTC)
	pusher := &fakePusher{}
	svc := NewService(src, backupDir, pusher).WithClock(func() time.Time { return when })

	res, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.PushErr)
	require.Equal(t, []time.Time{when}, pusher.calls)
	require.Equal(t, []string{backupDir}, pusher.dirs)
}

func TestSchedulerRunTreatsMissingSourceAsSkip(t *testing.T) {
	root := t.TempDir()
	svc := NewService(filepath.Join(root, "missing.db"), filepath.Join(root, "backups"), nil)
	sched := NewScheduler(svc, time.Hour)

	sched.runOnce(context.Background())

	require.False(t, sched.running.Load(), "guard must be released after a skipped run")
	_, statErr := os.Stat(filepath.Join(root, "backups"))
	require.True(t, os.IsNotExist(statErr))
}

type blockingPusher struct {
	block chan struct{}
	calls atomic.Int32
}

func (p *blockingPusher) Push(_ context.Context, _ string, _ time.Time) error {
	p.calls.Add(1)
	<-p.block
	return nil
}

func TestSchedulerSkipsOverlappingRun(t *testing.T) {
	root := t.TempDir()
	src := writeSource(t, root, "data")
	backupDir := filepath.Join(root, "backups")

	pusher := &blockingPusher{block: make(chan struct{})}
	svc := NewService(src, backupDir, pusher)
	sched := NewScheduler(svc, time.Hour)

	go sched.runOnce(context.Background())
	require.Eventually(t, func() bool { return pusher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// second trigger while the first is still blocked inside the push
	sched.runOnce(context.Background())
	close(pusher.block)

	require.Eventually(t, func() bool { return !sched.running.Load() }, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), pusher.calls.Load(), "overlapping run must be skipped, not queued")
}

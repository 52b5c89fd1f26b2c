package backup

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	coreconfig "refurbot/core/config"
)

// GitPusher mirrors the snapshot directory to a git remote by shelling
// out to the git binary: stage, commit, push.
type GitPusher struct {
	remote  string
	branch  string
	timeout time.Duration
}

// NewGitPusher builds a pusher from backup configuration.
func NewGitPusher(cfg coreconfig.BackupConfig) *GitPusher {
	timeout := time.Duration(cfg.PushTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GitPusher{
		remote:  cfg.RemoteName,
		branch:  cfg.RemoteBranch,
		timeout: timeout,
	}
}

// Push stages the snapshot directory, commits, and pushes. The three
// commands share one deadline; any failure aborts the remainder.
func (p *GitPusher) Push(ctx context.Context, dir string, when time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.git(ctx, "add", "--", dir); err != nil {
		return err
	}
	msg := "Auto-backup: " + when.UTC().Format(time.RFC3339)
	if err := p.git(ctx, "commit", "-m", msg); err != nil {
		// An unchanged tree is not a failure; the previous push already
		// holds the current snapshot set.
		if strings.Contains(err.Error(), "nothing to commit") {
			return nil
		}
		return err
	}
	return p.git(ctx, "push", p.remote, p.branch)
}

func (p *GitPusher) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(out.String())
		if detail != "" {
			return fmt.Errorf("git %s: %w: %s", args[0], err, detail)
		}
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}

// Package gitops persists scraped data the way the tracker always has:
// stage the data directory and the brand manifest, commit as the bot
// identity with a UTC-timestamped message, push. Runs with nothing staged
// are a logged no-op.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type Options struct {
	// Dir is the repository root. DataDir and ManifestFile are relative to it.
	Dir          string
	DataDir      string
	ManifestFile string

	RemoteName    string
	BotName       string
	BotEmail      string
	MessagePrefix string

	// Push can be disabled for local runs; the commit still happens.
	Push bool
}

type Repo struct {
	opts Options
	repo *git.Repository
}

// Open attaches to an existing repository; it never creates one.
func Open(opts Options) (*Repo, error) {
	if opts.RemoteName == "" {
		opts.RemoteName = "origin"
	}
	if opts.MessagePrefix == "" {
		opts.MessagePrefix = "Automated data update by GitHub Actions"
	}

	repo, err := git.PlainOpen(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", opts.Dir, err)
	}
	return &Repo{opts: opts, repo: repo}, nil
}

// CommitAndPush stages the data paths and, if anything actually changed,
// creates exactly one bot commit and one push. A missing manifest is skipped
// rather than failed, and a clean tree is a normal no-op.
func (r *Repo) CommitAndPush(ctx context.Context) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	if err := r.stage(wt, r.opts.DataDir); err != nil {
		return err
	}
	if err := r.stage(wt, r.opts.ManifestFile); err != nil {
		return err
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if !hasStagedChanges(status) {
		slog.Info("No data changes to commit")
		return nil
	}

	now := time.Now().UTC()
	message := fmt.Sprintf("%s %s", r.opts.MessagePrefix, now.Format(time.UnixDate))
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.opts.BotName,
			Email: r.opts.BotEmail,
			When:  now,
		},
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("Committed data update", "hash", hash.String(), "message", message)

	if !r.opts.Push {
		slog.Info("Push disabled, leaving commit local")
		return nil
	}

	err = r.repo.PushContext(ctx, &git.PushOptions{RemoteName: r.opts.RemoteName})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	slog.Info("Pushed data update", "remote", r.opts.RemoteName)
	return nil
}

// Pull fast-forwards the worktree from the remote before the dashboard
// serves it.
func (r *Repo) Pull(ctx context.Context) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: r.opts.RemoteName})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// stage adds a path if it exists. An absent path (the manifest on a fresh
// repo, or a data dir the scraper never wrote) is not an error.
func (r *Repo) stage(wt *git.Worktree, rel string) error {
	if rel == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(r.opts.Dir, rel)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{Path: rel}); err != nil {
		return fmt.Errorf("stage %s: %w", rel, err)
	}
	return nil
}

func hasStagedChanges(status git.Status) bool {
	for _, st := range status {
		switch st.Staging {
		case git.Added, git.Modified, git.Deleted, git.Renamed, git.Copied:
			return true
		}
	}
	return false
}

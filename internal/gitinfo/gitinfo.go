// Package gitinfo exposes the small slice of repository state the tree
// decorates nodes with: per-file working-tree status and the parsed origin
// remote. Everything is cached with a timestamp; invalidation is always a
// whole-cache clear, never partial.
package gitinfo

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v6"

	"repotree/internal/logging"
)

// FileState classifies a path's working-tree status.
type FileState int

const (
	StateClean FileState = iota
	StateModified
	StateAdded
	StateDeleted
	StateRenamed
	StateUntracked
	StateConflict
)

// String returns a human-readable description of the file state.
func (fs FileState) String() string {
	switch fs {
	case StateClean:
		return "clean"
	case StateModified:
		return "modified"
	case StateAdded:
		return "added"
	case StateDeleted:
		return "deleted"
	case StateRenamed:
		return "renamed"
	case StateUntracked:
		return "untracked"
	case StateConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// RemoteInfo is the parsed origin remote of a repository.
type RemoteInfo struct {
	Host  string
	Owner string
	Repo  string
	URL   string
}

// DefaultTTL bounds how stale a cached status or remote answer may get
// before the next read recomputes it, even without an explicit invalidation.
const DefaultTTL = 30 * time.Second

// Service answers status and remote queries for one repository root.
// Reads are lock-free against the concurrent status map; recomputation is
// serialized so a burst of lookups after an invalidation runs git once.
type Service struct {
	repoRoot string
	ttl      time.Duration

	statuses   sync.Map // normalized rel path -> FileState
	refreshMu  sync.Mutex
	statusesAt time.Time

	remoteMu sync.Mutex
	remote   *RemoteInfo
	remoteAt time.Time
}

// NewService creates a Service over the repository rooted at repoRoot.
// A non-positive ttl falls back to DefaultTTL.
func NewService(repoRoot string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{repoRoot: repoRoot, ttl: ttl}
}

// StateFor returns the working-tree state of path. Paths outside the
// repository, lookup failures, and non-repositories all degrade to
// StateClean rather than surfacing an error.
func (s *Service) StateFor(path string) FileState {
	if err := s.ensureStatuses(); err != nil {
		logging.Debug("Git status unavailable", "root", s.repoRoot, "error", err)
		return StateClean
	}

	rel, err := filepath.Rel(s.repoRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return StateClean
	}
	rel = filepath.ToSlash(rel)

	if v, ok := s.statuses.Load(rel); ok {
		return v.(FileState)
	}
	return StateClean
}

// InvalidateStatuses drops the whole status cache. The next StateFor call
// recomputes it. Called by the watcher pipeline on any observed change.
func (s *Service) InvalidateStatuses() {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.statuses.Clear()
	s.statusesAt = time.Time{}
}

func (s *Service) ensureStatuses() error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if !s.statusesAt.IsZero() && time.Since(s.statusesAt) < s.ttl {
		return nil
	}

	repo, err := git.PlainOpen(s.repoRoot)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}

	s.statuses.Clear()
	for rel, st := range status {
		state := classify(st)
		if state == StateClean {
			continue
		}
		s.statuses.Store(filepath.ToSlash(rel), state)
	}
	s.statusesAt = time.Now()
	return nil
}

// classify collapses go-git's two-column staging/worktree codes into the
// single state the tree displays; the worktree column wins when both
// carry a change.
func classify(st *git.FileStatus) FileState {
	code := st.Worktree
	if code == git.Unmodified {
		code = st.Staging
	}
	switch code {
	case git.Untracked:
		return StateUntracked
	case git.Modified:
		return StateModified
	case git.Added, git.Copied:
		return StateAdded
	case git.Deleted:
		return StateDeleted
	case git.Renamed:
		return StateRenamed
	case git.UpdatedButUnmerged:
		return StateConflict
	default:
		return StateClean
	}
}

// Remote returns the parsed origin remote, cached until the TTL lapses or
// InvalidateRemote is called.
func (s *Service) Remote() (RemoteInfo, error) {
	s.remoteMu.Lock()
	defer s.remoteMu.Unlock()

	if s.remote != nil && time.Since(s.remoteAt) < s.ttl {
		return *s.remote, nil
	}

	repo, err := git.PlainOpen(s.repoRoot)
	if err != nil {
		return RemoteInfo{}, fmt.Errorf("failed to open repository: %w", err)
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return RemoteInfo{}, fmt.Errorf("no origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return RemoteInfo{}, fmt.Errorf("origin remote has no URL")
	}

	info, err := ParseRemoteURL(urls[0])
	if err != nil {
		return RemoteInfo{}, err
	}
	s.remote = &info
	s.remoteAt = time.Now()
	return info, nil
}

// InvalidateRemote drops the cached remote answer.
func (s *Service) InvalidateRemote() {
	s.remoteMu.Lock()
	defer s.remoteMu.Unlock()
	s.remote = nil
	s.remoteAt = time.Time{}
}

var sshRemotePattern = regexp.MustCompile(`^git@([^:]+):([^/]+)/(.+?)(?:\.git)?$`)

// ParseRemoteURL extracts host, owner, and repository name from an SSH or
// HTTPS git remote URL.
func ParseRemoteURL(raw string) (RemoteInfo, error) {
	if m := sshRemotePattern.FindStringSubmatch(raw); m != nil {
		return RemoteInfo{Host: m[1], Owner: m[2], Repo: m[3], URL: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return RemoteInfo{}, fmt.Errorf("unrecognized remote URL format: %s", raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return RemoteInfo{}, fmt.Errorf("remote URL has no owner/repo path: %s", raw)
	}
	repo := strings.TrimSuffix(parts[len(parts)-1], ".git")
	owner := strings.Join(parts[:len(parts)-1], "/")

	return RemoteInfo{Host: u.Host, Owner: owner, Repo: repo, URL: raw}, nil
}

// Package vcs reads branch, status and diffs of the git repository holding
// the workspace.
package vcs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/jeddict/jeddict/internal/editor"
)

// ErrNotRepository is returned when no repository encloses the path.
var ErrNotRepository = errors.New("vcs: not a git repository")

// FileStatus is the state of one changed path.
type FileStatus struct {
	Path     string `json:"path"`
	Status   string `json:"status"` // untracked, added, modified, deleted, renamed, copied, conflict
	Staged   bool   `json:"staged"`
	WorkTree bool   `json:"work_tree"`
}

// RepositoryStatus summarizes the working tree.
type RepositoryStatus struct {
	Branch         string        `json:"branch"`
	RemoteURL      string        `json:"remote_url,omitempty"`
	Files          []*FileStatus `json:"files"`
	StagedCount    int           `json:"staged_count"`
	ModifiedCount  int           `json:"modified_count"`
	UntrackedCount int           `json:"untracked_count"`
	IsClean        bool          `json:"is_clean"`
}

// CommitInfo describes one commit.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// Repository wraps an opened git repository.
type Repository struct {
	repo *git.Repository
	wt   *git.Worktree
	root string
}

// Open finds the repository containing path, searching parent directories.
func Open(path string) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no working tree to describe
		return nil, ErrNotRepository
	}
	return &Repository{repo: repo, wt: wt, root: wt.Filesystem.Root()}, nil
}

// Root is the working tree directory.
func (r *Repository) Root() string { return r.root }

// Branch returns the current branch name, or the short commit hash when
// HEAD is detached. An unborn branch yields its configured name.
func (r *Repository) Branch() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			head, herr := r.repo.Storer.Reference(plumbing.HEAD)
			if herr == nil && head.Type() == plumbing.SymbolicReference {
				return head.Target().Short(), nil
			}
		}
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if ref.Name().IsBranch() {
		return ref.Name().Short(), nil
	}
	return ref.Hash().String()[:7], nil
}

// RemoteURL returns the first URL of origin, or "".
func (r *Repository) RemoteURL() string {
	remote, err := r.repo.Remote("origin")
	if err != nil {
		return ""
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func statusName(code git.StatusCode) string {
	switch code {
	case git.Untracked:
		return "untracked"
	case git.Added:
		return "added"
	case git.Modified:
		return "modified"
	case git.Deleted:
		return "deleted"
	case git.Renamed:
		return "renamed"
	case git.Copied:
		return "copied"
	case git.UpdatedButUnmerged:
		return "conflict"
	default:
		return ""
	}
}

// Status reports the changed paths of the working tree.
func (r *Repository) Status() (*RepositoryStatus, error) {
	st, err := r.wt.Status()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	branch, _ := r.Branch()
	out := &RepositoryStatus{Branch: branch, RemoteURL: r.RemoteURL(), Files: make([]*FileStatus, 0, len(st))}
	for path, fs := range st {
		f := &FileStatus{Path: path}
		switch {
		case fs.Worktree == git.Untracked:
			f.Status = "untracked"
			out.UntrackedCount++
		case fs.Staging != git.Unmodified:
			f.Status = statusName(fs.Staging)
			f.Staged = true
			out.StagedCount++
			if fs.Worktree != git.Unmodified {
				f.WorkTree = true
				out.ModifiedCount++
			}
		case fs.Worktree != git.Unmodified:
			f.Status = statusName(fs.Worktree)
			f.WorkTree = true
			out.ModifiedCount++
		default:
			continue
		}
		out.Files = append(out.Files, f)
	}
	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Path < out.Files[j].Path })
	out.IsClean = len(out.Files) == 0
	return out, nil
}

// FormatStatus renders the status for prompts and the terminal.
func (s *RepositoryStatus) FormatStatus() string {
	var b strings.Builder
	fmt.Fprintf(&b, "On branch %s\n", s.Branch)
	if s.IsClean {
		b.WriteString("Working tree clean\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d staged, %d modified, %d untracked\n", s.StagedCount, s.ModifiedCount, s.UntrackedCount)
	for _, f := range s.Files {
		mark := " "
		if f.Staged {
			mark = "+"
		}
		fmt.Fprintf(&b, "%s %-9s %s\n", mark, f.Status, f.Path)
	}
	return b.String()
}

// Diff renders a unified diff of the repository. With staged it compares
// HEAD to the index, otherwise the index to the working tree, including
// untracked files.
func (r *Repository) Diff(staged bool) (string, error) {
	st, err := r.wt.Status()
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	paths := make([]string, 0, len(st))
	for p := range st {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		fs := st[path]
		var oldContent, newContent string
		if staged {
			if fs.Staging == git.Unmodified || fs.Staging == git.Untracked {
				continue
			}
			oldContent, err = r.headContent(path)
			if err != nil {
				return "", err
			}
			if fs.Staging != git.Deleted {
				if newContent, err = r.indexContent(path); err != nil {
					return "", err
				}
			}
		} else {
			if fs.Worktree == git.Unmodified {
				continue
			}
			if fs.Worktree != git.Untracked {
				if oldContent, err = r.indexContent(path); err != nil {
					return "", err
				}
			}
			if fs.Worktree != git.Deleted {
				data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path)))
				if err != nil {
					return "", fmt.Errorf("read %s: %w", path, err)
				}
				newContent = string(data)
			}
		}
		fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)
		if isBinary(oldContent) || isBinary(newContent) {
			fmt.Fprintf(&b, "Binary files a/%s and b/%s differ\n", path, path)
			continue
		}
		b.WriteString(editor.UnifiedDiff(oldContent, newContent, path))
	}
	return b.String(), nil
}

// ChangesDiff returns the staged diff, or every working tree change when
// nothing is staged. It is what a commit message should describe.
func (r *Repository) ChangesDiff() (string, error) {
	diff, err := r.Diff(true)
	if err != nil || strings.TrimSpace(diff) != "" {
		return diff, err
	}
	return r.Diff(false)
}

func (r *Repository) headContent(path string) (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return "", fmt.Errorf("read HEAD commit: %w", err)
	}
	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read %s at HEAD: %w", path, err)
	}
	return file.Contents()
}

func (r *Repository) indexContent(path string) (string, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return "", fmt.Errorf("read index: %w", err)
	}
	entry, err := idx.Entry(path)
	if err != nil {
		return "", nil
	}
	blob, err := r.repo.BlobObject(entry.Hash)
	if err != nil {
		return "", fmt.Errorf("read %s from index: %w", path, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return "", err
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	return string(data), err
}

// RecentCommits returns up to n commits reachable from HEAD, newest first.
func (r *Repository) RecentCommits(n int) ([]CommitInfo, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read HEAD: %w", err)
	}
	iter, err := r.repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	defer iter.Close()

	var out []CommitInfo
	for len(out) < n {
		c, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, CommitInfo{
			Hash:    c.Hash.String(),
			Message: strings.TrimSpace(c.Message),
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
	}
	return out, nil
}

func isBinary(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}

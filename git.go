package projectversion

import (
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// GitProvenance describes the commit a build is produced from
type GitProvenance struct {
	Commit     string
	CommitTime time.Time
	Dirty      bool
}

// OpenRepository opens a Git repository at the specified path
func OpenRepository(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
}

// RepositoryProvenance reads the commit and worktree state for commitish
// (default: "HEAD").
func RepositoryProvenance(repo *git.Repository, commitish plumbing.Revision) (*GitProvenance, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if commitish == "" {
		commitish = "HEAD"
	}

	revision, err := repo.ResolveRevision(commitish)
	if err != nil {
		return nil, fmt.Errorf("resolving commitish: %w", err)
	}

	commit, err := repo.CommitObject(*revision)
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}

	isDirty, err := workTreeIsDirty(repo)
	if err != nil {
		return nil, fmt.Errorf("checking if worktree is dirty: %w", err)
	}

	return &GitProvenance{
		Commit:     revision.String()[:8],
		CommitTime: commit.Committer.When.UTC(),
		Dirty:      isDirty,
	}, nil
}

// Apply records the provenance in bctx. The commit time stands in for the build
// timestamp only when bctx has none.
func (p *GitProvenance) Apply(bctx BuildContext) BuildContext {
	if p == nil {
		return bctx
	}

	bctx.Commit = p.Commit
	if p.Dirty {
		bctx.Commit += ".dirty"
	}
	if bctx.Timestamp.IsZero() {
		bctx.Timestamp = p.CommitTime
	}
	return bctx
}

// NextCandidateIndex scans the repository tags for release candidates of
// baseVersion and returns one past the highest index found, or 1 when there are
// none. Module prefixes such as "sdk/" and a leading "v" are ignored.
func NextCandidateIndex(repo *git.Repository, baseVersion string, tagFilter func(string) bool) (int, error) {
	if repo == nil {
		return 0, fmt.Errorf("repository is required")
	}

	target, err := splitQualifier(baseVersion)
	if err != nil {
		return 0, err
	}

	tags, err := repo.Tags()
	if err != nil {
		return 0, fmt.Errorf("listing tags: %w", err)
	}

	next := 1
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if tagFilter != nil && !tagFilter(name) {
			return nil
		}

		q, err := splitQualifier(stripModuleTagPrefixes(name))
		if err != nil || q.kind != Candidate {
			// not a candidate version tag
			return nil
		}
		if q.base.Compare(target.base) != 0 {
			return nil
		}

		if q.hasIndex && q.index+1 > next {
			next = q.index + 1
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning tags: %w", err)
	}

	return next, nil
}

func stripModuleTagPrefixes(tag string) string {
	_, versionComponent := path.Split(tag)
	return strings.TrimPrefix(versionComponent, "v")
}

func workTreeIsDirty(repo *git.Repository) (bool, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		if err == git.ErrIsBareRepository {
			return false, nil
		}
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	// Fast path for filesystem storage
	if _, ok := repo.Storer.(*filesystem.Storage); ok {
		return checkDirtyWithGitCommand(workTree.Filesystem.Root())
	}

	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}

	return !status.IsClean(), nil
}

func checkDirtyWithGitCommand(repoPath string) (bool, error) {
	cmd := exec.Command("git", "update-index", "-q", "--refresh")
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		// If update-index fails, assume dirty
		return true, nil
	}

	cmd = exec.Command("git", "diff-files", "--name-status", "--ignore-space-at-eol")
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return true, nil
		}
		return false, err
	}

	return len(output) > 0, nil
}

package projectversion

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	return git.Init(memory.NewStorage(), memfs.New())
}

// testRepoCommit adds a file and commits it, returning the commit hash
func testRepoCommit(repo *git.Repository, filename string) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if err := writeFile(workTree.Filesystem, filename, "content of "+filename); err != nil {
		return plumbing.ZeroHash, err
	}

	if _, err := workTree.Add(filename); err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit("Add "+filename, &git.CommitOptions{Author: testSignature})
}

// testRepoWithTags commits once per tag and tags each commit, oldest first
func testRepoWithTags(repo *git.Repository, tags []string) (*git.Repository, error) {
	for i, tag := range tags {
		hash, err := testRepoCommit(repo, "file_"+string(rune('a'+i))+".txt")
		if err != nil {
			return nil, err
		}
		if _, err := repo.CreateTag(tag, hash, nil); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}

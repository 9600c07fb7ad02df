package projectversion

import (
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// VersionFilename is the name of the file recording the project version in the
// build directory.
const VersionFilename = "projectversion.txt"

// WriteVersionFile writes the display version to VersionFilename at the root of
// fs, which is normally the build directory.
func WriteVersionFile(fs billy.Filesystem, v Version) error {
	if v.String() == "" {
		return fmt.Errorf("%w: version is not resolved", ErrInvalidBuildType)
	}

	if err := util.WriteFile(fs, VersionFilename, []byte(v.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", fs.Join(fs.Root(), VersionFilename), err)
	}
	return nil
}

// ReadVersionFile reads VersionFilename from fs and parses it.
func ReadVersionFile(fs billy.Filesystem) (Version, error) {
	data, err := util.ReadFile(fs, VersionFilename)
	if err != nil {
		return Version{}, fmt.Errorf("reading %s: %w", fs.Join(fs.Root(), VersionFilename), err)
	}
	return Parse(strings.TrimSpace(string(data)))
}

package projectversion

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// ErrSnapshotDependency is returned when a release build depends on a
// development version of an internal artifact.
var ErrSnapshotDependency = errors.New("release build depends on snapshot artifact")

var (
	// DefaultInternalGroups are the artifact groups owned by the organization.
	DefaultInternalGroups = []string{"com.cthing", "org.cthing"}

	// BuildConfigurations are the dependency configurations that end up in
	// compiled or runtime artifacts.
	BuildConfigurations = []string{"api", "compileOnly", "compileOnlyApi", "implementation", "runtimeOnly"}

	snapshotDependencyRe = regexp.MustCompile(`.*(?:\+|-SNAPSHOT|-\d+)$`)
)

// Dependency is a declared artifact dependency.
type Dependency struct {
	Group         string `yaml:"group" json:"group"`
	Name          string `yaml:"name" json:"name"`
	Version       string `yaml:"version,omitempty" json:"version,omitempty"`
	Configuration string `yaml:"configuration" json:"configuration"`
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s:%s:%s (%s)", d.Group, d.Name, d.Version, d.Configuration)
}

// IsSnapshotVersion reports whether a dependency version denotes a moving
// development version: empty, dynamic ("4.+"), -SNAPSHOT, or a timestamped
// snapshot ("1.2.3-1718000000000").
func IsSnapshotVersion(version string) bool {
	return version == "" || snapshotDependencyRe.MatchString(version)
}

// ValidateReleaseDependencies checks that a release build only depends on
// released versions of artifacts in groups (DefaultInternalGroups when empty).
// Every violation is reported; the returned error wraps ErrSnapshotDependency.
func ValidateReleaseDependencies(v Version, deps []Dependency, groups []string) error {
	if !v.IsReleaseBuild() {
		return nil
	}
	if len(groups) == 0 {
		groups = DefaultInternalGroups
	}

	var errs []error
	for _, dep := range deps {
		if !slices.Contains(groups, dep.Group) || !slices.Contains(BuildConfigurations, dep.Configuration) {
			continue
		}
		if IsSnapshotVersion(dep.Version) {
			errs = append(errs, fmt.Errorf("%w %s", ErrSnapshotDependency, dep))
		}
	}

	return errors.Join(errs...)
}

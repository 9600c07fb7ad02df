// Package projectversion establishes the versioning scheme for software projects.
//
// A project declares a semantic base version and a build type. Resolve turns the
// pair into an immutable Version that the rest of the build reads for artifact
// names, manifest attributes, publication metadata and repository selection.
package projectversion

import (
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver"
)

// BuildType classifies a build. The zero value is not a valid build type so that
// callers always state explicitly what kind of build they are producing.
type BuildType int

const (
	// Snapshot is an in-progress development build that must never be released.
	Snapshot BuildType = iota + 1
	// Candidate is a build frozen for verification before a final release.
	Candidate
	// Release is a final, publishable build.
	Release
)

var buildTypeNames = map[BuildType]string{
	Snapshot:  "snapshot",
	Candidate: "candidate",
	Release:   "release",
}

// BuildTypes lists the valid build types in ascending precedence.
func BuildTypes() []BuildType {
	return []BuildType{Snapshot, Candidate, Release}
}

// ParseBuildType converts a case-insensitive name into a BuildType
func ParseBuildType(name string) (BuildType, error) {
	normalised := strings.ToLower(strings.TrimSpace(name))
	for bt, n := range buildTypeNames {
		if n == normalised {
			return bt, nil
		}
	}
	return 0, fmt.Errorf("unknown build type %q: expected one of snapshot, candidate, release", name)
}

// Valid reports whether bt is one of the defined build types.
func (bt BuildType) Valid() bool {
	_, ok := buildTypeNames[bt]
	return ok
}

func (bt BuildType) String() string {
	if n, ok := buildTypeNames[bt]; ok {
		return n
	}
	return fmt.Sprintf("BuildType(%d)", int(bt))
}

// MarshalText implements encoding.TextMarshaler.
func (bt BuildType) MarshalText() ([]byte, error) {
	if !bt.Valid() {
		return nil, fmt.Errorf("invalid build type %d", int(bt))
	}
	return []byte(bt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (bt *BuildType) UnmarshalText(text []byte) error {
	parsed, err := ParseBuildType(string(text))
	if err != nil {
		return err
	}
	*bt = parsed
	return nil
}

// BuildContext carries the provenance of a build. It is captured once by the
// caller, usually from the environment and the VCS, and handed to Resolve.
// Zero fields mean the value is unavailable.
type BuildContext struct {
	// Timestamp is when the build was started
	Timestamp time.Time

	// BuildNumber is the CI provided build counter (e.g. a workflow run number)
	BuildNumber string

	// Commit is the short VCS revision being built
	Commit string

	// CandidateIndex overrides the release candidate index when greater than zero
	CandidateIndex int
}

// Version is a resolved project version. It is immutable: all fields are
// unexported and accessors return copies.
type Version struct {
	base        semver.Version
	buildType   BuildType
	display     string
	buildDate   time.Time
	buildNumber string
	commit      string
}

package projectversion

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/blang/semver"
)

// Grammar describes the accepted base version syntax in error messages.
const Grammar = "MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]"

const (
	snapshotQualifier  = "-SNAPSHOT"
	candidateQualifier = "-rc"
)

var (
	// ErrInvalidVersionFormat is returned when a version string is not a semantic version.
	ErrInvalidVersionFormat = errors.New("invalid version format")
	// ErrIncompatibleBuildType is returned when the requested build type conflicts
	// with a qualifier already embedded in the version string.
	ErrIncompatibleBuildType = errors.New("incompatible build type")
	// ErrInvalidBuildType is returned when no valid build type was given.
	ErrInvalidBuildType = errors.New("invalid build type")
	// ErrMissingProvenance reports absent build date or build number. It is a
	// warning and never fails resolution.
	ErrMissingProvenance = errors.New("missing build provenance")
)

var candidateTokenRe = regexp.MustCompile(`(?i)^rc(\d*)$`)

// qualified is a version string split into its semantic base and an embedded
// build-type qualifier, if any.
type qualified struct {
	base     semver.Version
	core     string
	meta     string
	kind     BuildType
	index    int
	hasIndex bool
}

// preReleaseTokens splits the pre-release part of core into identifiers on both
// '.' and '-', returning each token with its offset in core.
func preReleaseTokens(core string) ([]string, []int) {
	dash := strings.IndexByte(core, '-')
	if dash < 0 {
		return nil, nil
	}

	var tokens []string
	var offsets []int
	start := dash + 1
	for i := start; i <= len(core); i++ {
		if i == len(core) || core[i] == '.' || core[i] == '-' {
			tokens = append(tokens, core[start:i])
			offsets = append(offsets, start)
			start = i + 1
		}
	}
	return tokens, offsets
}

// splitQualifier finds a SNAPSHOT or rc identifier anywhere in the pre-release.
// The qualifier and everything after it are cut from the core; an rc index is
// taken from "rcN" or from a numeric identifier directly after "rc".
func splitQualifier(version string) (*qualified, error) {
	if _, err := semver.Parse(version); err != nil {
		return nil, fmt.Errorf("%w %q: expected %s: %v", ErrInvalidVersionFormat, version, Grammar, err)
	}

	core, meta, _ := strings.Cut(version, "+")
	q := &qualified{core: core, meta: meta}

	tokens, offsets := preReleaseTokens(core)
	snapshotAt, candidateAt := -1, -1
	for i, token := range tokens {
		if snapshotAt < 0 && strings.EqualFold(token, "SNAPSHOT") {
			snapshotAt = i
		}
		if candidateAt < 0 && candidateTokenRe.MatchString(token) {
			candidateAt = i
		}
	}

	switch {
	case snapshotAt >= 0 && candidateAt >= 0:
		return nil, fmt.Errorf("%w: %q carries both snapshot and candidate qualifiers", ErrIncompatibleBuildType, version)
	case snapshotAt >= 0:
		q.kind = Snapshot
		q.core = core[:offsets[snapshotAt]-1]
	case candidateAt >= 0:
		q.kind = Candidate
		q.core = core[:offsets[candidateAt]-1]

		digits := candidateTokenRe.FindStringSubmatch(tokens[candidateAt])[1]
		if digits == "" && candidateAt+1 < len(tokens) && isNumeric(tokens[candidateAt+1]) {
			digits = tokens[candidateAt+1]
		}
		if digits != "" {
			index, err := strconv.Atoi(digits)
			if err != nil {
				return nil, fmt.Errorf("%w %q: candidate index: %v", ErrInvalidVersionFormat, version, err)
			}
			q.index, q.hasIndex = index, true
		}
	}

	base, err := semver.Parse(q.withMeta(q.core))
	if err != nil {
		return nil, fmt.Errorf("%w %q: expected %s: %v", ErrInvalidVersionFormat, version, Grammar, err)
	}
	q.base = base

	return q, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func (q *qualified) withMeta(s string) string {
	if q.meta == "" {
		return s
	}
	return s + "+" + q.meta
}

// Resolve builds the Version for a base version and build type. The build
// context supplies provenance only; missing values are left empty and reported
// by Version.ProvenanceGaps. Resolve performs no I/O and is safe to call
// concurrently.
func Resolve(baseVersion string, buildType BuildType, bctx BuildContext) (Version, error) {
	if !buildType.Valid() {
		return Version{}, fmt.Errorf("%w %q: build type must be one of snapshot, candidate, release",
			ErrInvalidBuildType, buildType)
	}

	q, err := splitQualifier(baseVersion)
	if err != nil {
		return Version{}, err
	}

	if q.kind != 0 && q.kind != buildType {
		return Version{}, fmt.Errorf("%w: %q carries a %s qualifier and cannot be used for a %s build",
			ErrIncompatibleBuildType, baseVersion, q.kind, buildType)
	}

	var display string
	switch buildType {
	case Snapshot:
		display = q.withMeta(q.core + snapshotQualifier)
	case Candidate:
		display = q.withMeta(q.core + candidateQualifier + candidateSuffix(q, bctx))
	default:
		display = baseVersion
	}

	v := Version{
		base:        q.base,
		buildType:   buildType,
		display:     display,
		buildNumber: strings.TrimSpace(bctx.BuildNumber),
		commit:      bctx.Commit,
	}
	if !bctx.Timestamp.IsZero() {
		v.buildDate = bctx.Timestamp.UTC()
	}

	return v, nil
}

// candidateSuffix picks the rc index: embedded in the version, then the explicit
// context index, then a numeric build number.
func candidateSuffix(q *qualified, bctx BuildContext) string {
	switch {
	case q.hasIndex:
		return "." + strconv.Itoa(q.index)
	case bctx.CandidateIndex > 0:
		return "." + strconv.Itoa(bctx.CandidateIndex)
	}

	if n, err := strconv.ParseUint(strings.TrimSpace(bctx.BuildNumber), 10, 32); err == nil {
		return "." + strconv.FormatUint(n, 10)
	}
	return ""
}

// Parse reads a canonical version string. The build type is inferred from the
// qualifier: a SNAPSHOT identifier is a snapshot, rc[N] a candidate, anything
// else a release.
func Parse(version string) (Version, error) {
	q, err := splitQualifier(version)
	if err != nil {
		return Version{}, err
	}

	buildType := q.kind
	if buildType == 0 {
		buildType = Release
	}

	return Resolve(version, buildType, BuildContext{})
}

// MustParse is like Parse but panics on error.
func MustParse(version string) Version {
	v, err := Parse(version)
	if err != nil {
		panic(err)
	}
	return v
}

// Base returns the semantic base version, without any build-type qualifier.
func (v Version) Base() semver.Version {
	base := v.base
	base.Pre = slices.Clone(v.base.Pre)
	base.Build = slices.Clone(v.base.Build)
	return base
}

// BuildType returns the build classification.
func (v Version) BuildType() BuildType { return v.buildType }

// BuildDate returns the UTC build timestamp, or the zero time when unknown.
func (v Version) BuildDate() time.Time { return v.buildDate }

// BuildNumber returns the CI build number, or "" when unknown.
func (v Version) BuildNumber() string { return v.buildNumber }

// Commit returns the short VCS revision, or "" when unknown.
func (v Version) Commit() string { return v.commit }

// IsSnapshotBuild reports whether v is a development build that must not be released.
func (v Version) IsSnapshotBuild() bool { return v.buildType == Snapshot }

// IsCandidateBuild reports whether v is a release candidate.
func (v Version) IsCandidateBuild() bool { return v.buildType == Candidate }

// IsReleaseBuild reports whether v is a final release.
func (v Version) IsReleaseBuild() bool { return v.buildType == Release }

// String returns the canonical display form, e.g. 3.0.1-SNAPSHOT.
func (v Version) String() string {
	return v.display
}

// ProvenanceGaps returns an error wrapping ErrMissingProvenance when a snapshot
// or candidate build lacks a build date or build number.
func (v Version) ProvenanceGaps() error {
	if v.buildType != Snapshot && v.buildType != Candidate {
		return nil
	}

	var missing []string
	if v.buildDate.IsZero() {
		missing = append(missing, "build date")
	}
	if v.buildNumber == "" {
		missing = append(missing, "build number")
	}
	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("%w for %s build %s: %s",
		ErrMissingProvenance, v.buildType, v.display, strings.Join(missing, ", "))
}

// Compare orders versions by semantic version precedence of their base, then by
// build type (snapshot < candidate < release). Build date, number and commit are
// metadata and never take part.
func Compare(a, b Version) int {
	if c := a.base.Compare(b.base); c != 0 {
		return c
	}

	switch {
	case a.buildType < b.buildType:
		return -1
	case a.buildType > b.buildType:
		return 1
	default:
		return 0
	}
}

// Compare is the method form of Compare.
func (v Version) Compare(o Version) int { return Compare(v, o) }

// Equal reports whether v and o have the same base version and build type.
func (v Version) Equal(o Version) bool { return Compare(v, o) == 0 }

// LessThan reports whether v orders before o.
func (v Version) LessThan(o Version) bool { return Compare(v, o) < 0 }

// Sort sorts versions in ascending order.
func Sort(versions []Version) {
	slices.SortStableFunc(versions, Compare)
}

type versionJSON struct {
	Version     string `json:"version"`
	Base        string `json:"baseVersion"`
	BuildType   string `json:"buildType"`
	BuildDate   string `json:"buildDate,omitempty"`
	BuildNumber string `json:"buildNumber,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Snapshot    bool   `json:"snapshot"`
}

// MarshalJSON implements json.Marshaler.
func (v Version) MarshalJSON() ([]byte, error) {
	doc := versionJSON{
		Version:     v.display,
		Base:        v.base.String(),
		BuildType:   v.buildType.String(),
		BuildNumber: v.buildNumber,
		Commit:      v.commit,
		Snapshot:    v.IsSnapshotBuild(),
	}
	if !v.buildDate.IsZero() {
		doc.BuildDate = v.buildDate.Format(time.RFC3339)
	}
	return json.Marshal(doc)
}

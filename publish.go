package projectversion

import (
	"errors"
	"fmt"
	"time"
)

// Keys of the metadata embedded in published artifacts.
const (
	ManifestTitle   = "Implementation-Title"
	ManifestVendor  = "Implementation-Vendor"
	ManifestVersion = "Implementation-Version"

	PropertyBuildDate   = "cthing.build.date"
	PropertyBuildNumber = "cthing.build.number"
	PropertyBuildCommit = "cthing.build.commit"
)

// ErrSnapshotPublish is returned when a snapshot build is about to be published
// to a permanent channel.
var ErrSnapshotPublish = errors.New("cannot publish a snapshot build")

// Channel is a publication destination.
type Channel string

const (
	// ChannelSnapshot accepts developer builds and may be overwritten.
	ChannelSnapshot Channel = "snapshot"
	// ChannelStaging holds candidates and releases awaiting promotion.
	ChannelStaging Channel = "staging"
	// ChannelRelease is a permanent release repository.
	ChannelRelease Channel = "release"
	// ChannelPortal is a public plugin or package portal.
	ChannelPortal Channel = "portal"
)

// Permanent reports whether artifacts published to the channel cannot be replaced.
func (c Channel) Permanent() bool {
	return c == ChannelRelease || c == ChannelPortal
}

// Repositories holds the publication repository locations for a project.
type Repositories struct {
	SnapshotsURL  string `yaml:"snapshots_url,omitempty" json:"snapshotsUrl,omitempty"`
	CandidatesURL string `yaml:"candidates_url,omitempty" json:"candidatesUrl,omitempty"`
}

// SelectRepository returns the repository a version is published to: snapshots
// go to the snapshot repository, candidates and releases to the candidates
// repository. The boolean is false when that repository is not configured.
func SelectRepository(v Version, repos Repositories) (string, bool) {
	url := repos.CandidatesURL
	if v.IsSnapshotBuild() {
		url = repos.SnapshotsURL
	}
	return url, url != ""
}

// CheckPublishable refuses to publish a snapshot build to a permanent channel.
func CheckPublishable(v Version, channel Channel) error {
	if !v.buildType.Valid() {
		return fmt.Errorf("%w: version is not resolved", ErrInvalidBuildType)
	}
	if v.IsSnapshotBuild() && channel.Permanent() {
		return fmt.Errorf("%w %s to the %s channel", ErrSnapshotPublish, v, channel)
	}
	return nil
}

// ManifestAttributes returns the archive manifest attributes for a version.
func ManifestAttributes(v Version, title, vendor string) map[string]string {
	return map[string]string{
		ManifestTitle:   title,
		ManifestVendor:  vendor,
		ManifestVersion: v.String(),
	}
}

// PublicationProperties returns the build provenance recorded in published
// metadata. Date and number are always present, empty when unknown.
func PublicationProperties(v Version) map[string]string {
	props := map[string]string{
		PropertyBuildDate:   "",
		PropertyBuildNumber: v.buildNumber,
	}
	if !v.buildDate.IsZero() {
		props[PropertyBuildDate] = v.buildDate.Format(time.RFC3339)
	}
	if v.commit != "" {
		props[PropertyBuildCommit] = v.commit
	}
	return props
}

package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cthing/projectversion"
	"github.com/cthing/projectversion/internal/logger"
)

// Project is the project descriptor.
type Project struct {
	// Name is the project (artifact) name.
	Name string `yaml:"name"`
	// Group is the artifact group, e.g. org.cthing.
	Group string `yaml:"group,omitempty"`
	// Vendor is written to the Implementation-Vendor manifest attribute.
	Vendor string `yaml:"vendor,omitempty"`
	// Version is the semantic base version.
	Version string `yaml:"version"`
	// BuildType must be set explicitly: snapshot, candidate or release.
	BuildType projectversion.BuildType `yaml:"build_type"`
	// BuildDir is the directory receiving the version file.
	BuildDir string `yaml:"build_dir,omitempty"`
	// BuildNumberEnv lists the environment variables holding the CI build number.
	BuildNumberEnv []string `yaml:"build_number_env,omitempty"`
	// InternalGroups are the groups whose snapshots a release may not depend on.
	InternalGroups []string `yaml:"internal_groups,omitempty"`
	// Repositories are the publication targets.
	Repositories projectversion.Repositories `yaml:"repositories,omitempty"`
	// Dependencies are the declared artifact dependencies.
	Dependencies []projectversion.Dependency `yaml:"dependencies,omitempty"`
}

const (
	// DefaultConfigFilename is the default descriptor filename.
	DefaultConfigFilename = "projectversion.yaml"

	// DefaultBuildDir is the default build output directory.
	DefaultBuildDir = "build"

	// DefaultFilePermissions is the permission used when saving the descriptor.
	DefaultFilePermissions = 0o644
)

var (
	// errProjectIsNotSet is returned when a nil descriptor is provided.
	errProjectIsNotSet = errors.New("project descriptor is not set")
	// errNameRequired is returned when the project name is missing.
	errNameRequired = errors.New("project name must be provided")
	// errVersionRequired is returned when the base version is missing.
	errVersionRequired = errors.New("project version must be provided")
	// errBuildTypeRequired is returned when no build type is declared.
	errBuildTypeRequired = errors.New("build type must be provided (snapshot, candidate or release)")
)

// Load reads the descriptor from path and validates it.
func Load(path string) (*Project, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read project descriptor: %w", err)
	}

	var project Project
	if err := yaml.Unmarshal(contents, &project); err != nil {
		return nil, fmt.Errorf("unmarshal project descriptor: %w", err)
	}

	if err := Validate(&project); err != nil {
		return nil, err
	}

	return &project, nil
}

// Save writes the descriptor to path.
func Save(path string, project *Project) error {
	if project == nil {
		return errProjectIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(project); err != nil {
		return err
	}

	data, err := yaml.Marshal(project)
	if err != nil {
		return fmt.Errorf("marshal project descriptor: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write project descriptor: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
func Validate(project *Project) error {
	if project == nil {
		return errProjectIsNotSet
	}

	if project.Name == "" {
		return errNameRequired
	}

	if project.Version == "" {
		return errVersionRequired
	}

	if !project.BuildType.Valid() {
		return errBuildTypeRequired
	}

	if project.BuildDir == "" {
		project.BuildDir = DefaultBuildDir
	}

	if len(project.InternalGroups) == 0 {
		project.InternalGroups = projectversion.DefaultInternalGroups
	}

	for name, raw := range map[string]string{
		"snapshots_url":  project.Repositories.SnapshotsURL,
		"candidates_url": project.Repositories.CandidatesURL,
	} {
		if raw == "" {
			continue
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	return nil
}

// Resolve resolves the project version with the given build context. Missing
// provenance is logged as a warning. A release that depends on snapshots of
// internal artifacts fails, with each offending dependency logged.
func (p *Project) Resolve(ctx context.Context, bctx projectversion.BuildContext) (projectversion.Version, error) {
	v, err := projectversion.Resolve(p.Version, p.BuildType, bctx)
	if err != nil {
		return projectversion.Version{}, fmt.Errorf("resolving version of %s: %w", p.Name, err)
	}

	if gaps := v.ProvenanceGaps(); gaps != nil {
		logger.WarnKV(ctx, gaps.Error(), "project", p.Name, "version", v.String())
	}

	if err := projectversion.ValidateReleaseDependencies(v, p.Dependencies, p.InternalGroups); err != nil {
		logger.ErrorKV(ctx, "release build depends on snapshot artifacts",
			"project", p.Name, "version", v.String(), "error", err)
		return projectversion.Version{}, err
	}

	logger.DebugKV(ctx, "resolved project version",
		"project", p.Name, "version", v.String(), "build_type", v.BuildType().String())

	return v, nil
}

// EnvironmentContext captures the build context from the process environment
// using the descriptor's build number variables.
func (p *Project) EnvironmentContext(lookup func(string) (string, bool), now time.Time) projectversion.BuildContext {
	return projectversion.EnvironmentContext(lookup, now, p.BuildNumberEnv...)
}

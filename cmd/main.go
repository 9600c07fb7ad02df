package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/cthing/projectversion"
	"github.com/cthing/projectversion/internal/config"
	"github.com/cthing/projectversion/internal/logger"
)

// Version will be set by build process
var Version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config   string           `short:"c" default:"projectversion.yaml" type:"path" help:"Project descriptor"`
	JSON     bool             `short:"j" help:"Output as JSON"`
	LogLevel string           `default:"info" enum:"debug,info,warn,error" help:"Log level"`
	Version  kong.VersionFlag `help:"Show version information"`
}

// runEnv carries what commands read from the outside world, captured once in main.
type runEnv struct {
	ctx    context.Context
	out    io.Writer
	now    time.Time
	lookup func(string) (string, bool)
}

type CLI struct {
	Globals

	Resolve       ResolveCmd       `cmd:"" default:"withargs" help:"Resolve and print the project version"`
	Parse         ParseCmd         `cmd:"" help:"Parse a canonical version string"`
	Compare       CompareCmd       `cmd:"" help:"Compare two canonical version strings"`
	File          FileCmd          `cmd:"" help:"Write the version file into the build directory"`
	Check         CheckCmd         `cmd:"" help:"Check that a release only depends on released internal artifacts"`
	PublishTarget PublishTargetCmd `cmd:"" name:"publish-target" help:"Print the repository the version is published to"`
	Properties    PropertiesCmd    `cmd:"" help:"Print manifest attributes and publication properties"`
}

func main() {
	var cli CLI

	kctx := kong.Parse(&cli,
		kong.Name("projectversion"),
		kong.Description("Resolve project versions from a base version and build type"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	if level, ok := logger.ParseLogLevel(cli.LogLevel); ok {
		logger.SetLevel(level)
	}

	rt := &runEnv{
		ctx:    logger.ToContext(context.Background(), logger.Logger()),
		out:    os.Stdout,
		now:    time.Now(),
		lookup: os.LookupEnv,
	}

	err := kctx.Run(&cli.Globals, rt)
	_ = logger.Logger().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// SourceFlags select where the version comes from and how provenance is captured.
type SourceFlags struct {
	BaseVersion       string `arg:"" optional:"" help:"Base version (default: read from the project descriptor)"`
	BuildType         string `short:"t" help:"Build type (snapshot, candidate, release); required with an explicit base version"`
	BuildNumber       string `short:"n" help:"Build number (default: from the CI environment)"`
	Repo              string `short:"r" help:"Repository path for commit provenance (default: current directory)"`
	NoGit             bool   `help:"Do not read commit provenance from Git"`
	CandidateFromTags bool   `help:"Number release candidates from existing rc tags"`
}

func (s *SourceFlags) resolve(g *Globals, rt *runEnv) (projectversion.Version, *config.Project, error) {
	project, err := s.project(g)
	if err != nil {
		return projectversion.Version{}, nil, err
	}

	ctx := logger.WithKV(rt.ctx, "project", project.Name)
	bctx := project.EnvironmentContext(rt.lookup, rt.now)
	if s.BuildNumber != "" {
		bctx.BuildNumber = s.BuildNumber
	}

	if !s.NoGit {
		bctx = s.gitContext(ctx, project, bctx)
	}

	v, err := project.Resolve(ctx, bctx)
	return v, project, err
}

// project loads the descriptor when there is one; an explicit base version and
// build type override its values. Without a descriptor the base version and
// build type must both be given.
func (s *SourceFlags) project(g *Globals) (*config.Project, error) {
	path := g.Config
	if path == "" {
		path = config.DefaultConfigFilename
	}

	var project *config.Project
	if _, err := os.Stat(path); err == nil || s.BaseVersion == "" {
		if project, err = config.Load(path); err != nil {
			return nil, err
		}
	} else {
		if s.BuildType == "" {
			return nil, errors.New("--build-type is required with an explicit base version and no project descriptor")
		}
		project = &config.Project{Name: filepath.Base(s.repoPath())}
	}

	if s.BaseVersion != "" {
		project.Version = s.BaseVersion
	}
	if s.BuildType != "" {
		buildType, err := projectversion.ParseBuildType(s.BuildType)
		if err != nil {
			return nil, err
		}
		project.BuildType = buildType
	}

	if err := config.Validate(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *SourceFlags) repoPath() string {
	if s.Repo != "" {
		return s.Repo
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// gitContext adds commit provenance. A missing repository only costs provenance.
func (s *SourceFlags) gitContext(ctx context.Context, project *config.Project, bctx projectversion.BuildContext) projectversion.BuildContext {
	repo, err := projectversion.OpenRepository(s.repoPath())
	if err != nil {
		logger.DebugKV(ctx, "no git repository, skipping commit provenance", "path", s.repoPath(), "error", err)
		return bctx
	}

	prov, err := projectversion.RepositoryProvenance(repo, plumbing.Revision("HEAD"))
	if err != nil {
		logger.DebugKV(ctx, "cannot read commit provenance", "error", err)
	} else {
		bctx = prov.Apply(bctx)
	}

	if s.CandidateFromTags && project.BuildType == projectversion.Candidate {
		next, err := projectversion.NextCandidateIndex(repo, project.Version, nil)
		if err != nil {
			logger.WarnKV(ctx, "cannot number release candidate from tags", "error", err)
		} else {
			bctx.CandidateIndex = next
		}
	}

	return bctx
}

type ResolveCmd struct {
	SourceFlags
}

func (c *ResolveCmd) Run(g *Globals, rt *runEnv) error {
	v, _, err := c.resolve(g, rt)
	if err != nil {
		return err
	}

	if g.JSON {
		return json.NewEncoder(rt.out).Encode(v)
	}

	fmt.Fprintln(rt.out, v)
	return nil
}

type ParseCmd struct {
	Input string `arg:"" help:"Canonical version string, e.g. 1.2.3-SNAPSHOT"`
}

func (c *ParseCmd) Run(g *Globals, rt *runEnv) error {
	v, err := projectversion.Parse(c.Input)
	if err != nil {
		return err
	}

	if g.JSON {
		return json.NewEncoder(rt.out).Encode(v)
	}

	fmt.Fprintf(rt.out, "version: %s\nbase: %s\nbuild type: %s\n", v, v.Base(), v.BuildType())
	return nil
}

type CompareCmd struct {
	A string `arg:"" help:"First version"`
	B string `arg:"" help:"Second version"`
}

func (c *CompareCmd) Run(g *Globals, rt *runEnv) error {
	a, err := projectversion.Parse(c.A)
	if err != nil {
		return err
	}
	b, err := projectversion.Parse(c.B)
	if err != nil {
		return err
	}

	result := projectversion.Compare(a, b)
	if g.JSON {
		return json.NewEncoder(rt.out).Encode(map[string]any{"a": a.String(), "b": b.String(), "result": result})
	}

	op := "="
	switch {
	case result < 0:
		op = "<"
	case result > 0:
		op = ">"
	}
	fmt.Fprintf(rt.out, "%s %s %s\n", a, op, b)
	return nil
}

type FileCmd struct {
	SourceFlags
	BuildDir string `short:"d" type:"path" help:"Build directory (default: from the project descriptor)"`
}

func (c *FileCmd) Run(g *Globals, rt *runEnv) error {
	v, project, err := c.resolve(g, rt)
	if err != nil {
		return err
	}

	dir := c.BuildDir
	if dir == "" {
		dir = project.BuildDir
	}

	if err := projectversion.WriteVersionFile(osfs.New(dir), v); err != nil {
		return err
	}

	logger.Infof(rt.ctx, "wrote %s to %s", v, filepath.Join(dir, projectversion.VersionFilename))
	return nil
}

type CheckCmd struct {
	SourceFlags
}

func (c *CheckCmd) Run(g *Globals, rt *runEnv) error {
	v, project, err := c.resolve(g, rt)
	if err != nil {
		return err
	}

	fmt.Fprintf(rt.out, "%s %s: %d dependencies ok\n", project.Name, v, len(project.Dependencies))
	return nil
}

type PublishTargetCmd struct {
	SourceFlags
	Channel string `default:"staging" enum:"snapshot,staging,release,portal" help:"Publication channel"`
}

func (c *PublishTargetCmd) Run(g *Globals, rt *runEnv) error {
	v, project, err := c.resolve(g, rt)
	if err != nil {
		return err
	}

	if err := projectversion.CheckPublishable(v, projectversion.Channel(c.Channel)); err != nil {
		return err
	}

	url, ok := projectversion.SelectRepository(v, project.Repositories)
	if !ok {
		return fmt.Errorf("no repository configured for %s build %s", v.BuildType(), v)
	}

	if g.JSON {
		return json.NewEncoder(rt.out).Encode(map[string]string{"version": v.String(), "repository": url})
	}

	fmt.Fprintln(rt.out, url)
	return nil
}

type PropertiesCmd struct {
	SourceFlags
}

func (c *PropertiesCmd) Run(g *Globals, rt *runEnv) error {
	v, project, err := c.resolve(g, rt)
	if err != nil {
		return err
	}

	props := projectversion.ManifestAttributes(v, project.Name, project.Vendor)
	for k, val := range projectversion.PublicationProperties(v) {
		props[k] = val
	}

	if g.JSON {
		return json.NewEncoder(rt.out).Encode(props)
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(rt.out, "%s=%s\n", k, props[k])
	}
	return nil
}

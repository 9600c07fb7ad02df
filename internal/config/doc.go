// Package config loads the project descriptor (projectversion.yaml) that
// declares a project's base version, build type, publication repositories and
// dependencies, and resolves the project version from it.
package config

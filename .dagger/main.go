// Tarot CI
//
// Package main provides reproducible builds and tests locally and in GitHub actions.
package main

import (
	"context"

	"dagger/tarot/internal/dagger"
)

// Tarot is the CI module for the tarot CLI and API server
type Tarot struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Tarot CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", "build", "tmp", ".tarot"]
	source *dagger.Directory,
) *Tarot {
	return &Tarot{
		Source: source,
	}
}

// goContainer returns a Debian Bookworm-based Go container with gcc,
// libsqlite3-dev, CGO enabled, and the project source mounted.
// go-sqlite3 needs cgo, so tests and builds both run here.
func (t *Tarot) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-bookworm").
		WithExec([]string{"apt-get", "update"}).
		WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
		WithEnvVariable("CGO_ENABLED", "1").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", t.Source)
}

// Test runs the unit tests via "go test"
func (t *Tarot) Test(
	ctx context.Context,

	// Packages to test
	// +optional
	// +default="./..."
	pkgs string,
) (string, error) {
	return t.goContainer().
		WithExec([]string{"go", "test", "-race", pkgs}).
		Stdout(ctx)
}

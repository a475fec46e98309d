package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/tarot/internal/dagger"
)

const binaryPath = "/out/tarot"

// Build compiles the tarot binary for the container's native platform and
// returns it. Cross builds are not offered since the sqlite driver needs cgo.
func (t *Tarot) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.File {
	return t.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", binaryPath, "./cli/tarot"}).
		File(binaryPath)
}

// BuildRelease compiles a versioned binary with embedded version info
func (t *Tarot) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.File {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/tarot/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/tarot/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/tarot/pkg/utils.Buildtime=%s'", buildtime),
	}

	return t.Build(ctx, strings.Join(ldflags, " "))
}

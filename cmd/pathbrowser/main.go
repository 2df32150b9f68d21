// pathbrowser - headless hierarchical path browser over local disk, S3 and Azure Blob.
package main

import (
	"os"

	"github.com/rescale/pathbrowser/internal/cli"
	"github.com/rescale/pathbrowser/internal/version"
)

// Version information, set with -ldflags at build time.
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// gqlprobe CLI - maps and probes GraphQL endpoints
package main

import (
	"os"

	"github.com/getmockd/gqlprobe/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	os.Exit(cli.Main())
}

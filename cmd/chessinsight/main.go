// Command chessinsight serves chess position analysis from a UCI engine.
package main

import "github.com/chessinsight/chessinsight/pkg/cli"

// Build information, set with -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}

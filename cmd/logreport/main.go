package main

import (
	"os"

	"github.com/olegiv/logreport-ai-go/internal/cli"
)

// Version information - injected at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime
	cli.GitCommit = gitCommit

	os.Exit(cli.Execute())
}

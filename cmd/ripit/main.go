package main

import (
	"context"
	"os"

	"ripit/internal/cli"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "0.1.0"

func main() {
	os.Exit(cli.NewCLI(Version).Run(context.Background(), os.Args[1:]))
}

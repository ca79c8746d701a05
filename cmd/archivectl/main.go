package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/archive-api/cmd/archivectl/cli"
)

var (
	version = "0.1.0-dev"
	commit  = "main"
)

func main() {
	root := cli.NewRootCommand(cli.VersionInfo{Version: version, Commit: commit})

	root.AddCommand(cli.NewMigrateCommand())
	root.AddCommand(cli.NewSeedCommand())
	root.AddCommand(cli.NewAuditCommand())
	root.AddCommand(cli.NewExportsCommand())
	root.AddCommand(cli.NewRulesCommand())
	root.AddCommand(cli.NewConfigCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

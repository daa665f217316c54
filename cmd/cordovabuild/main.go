package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/cordovabuild/cmd/cordovabuild/commands"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("cordovabuild"),
		kong.Description("Package a web app as a Cordova hybrid app from a single manifest."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	global := &commands.Global{Logger: slog.Default(), Ctx: ctx, Out: os.Stdout}

	err := parser.Run(global, cli)
	cancel()
	if err != nil {
		os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err))
	}
}

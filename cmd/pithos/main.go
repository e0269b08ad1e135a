// Package main provides the pithos CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/leapstack-labs/pithos/internal/cli"
	"github.com/leapstack-labs/pithos/internal/toolchain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.Execute(ctx)
	stop()
	os.Exit(toolchain.ExitCode(err))
}

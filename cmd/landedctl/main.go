// Package main is the entry point for the landedctl CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Simplici0/landedcost/cmd/landedctl/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}

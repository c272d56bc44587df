// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"codeberg.org/slabseller/accounts/internal/config"
	"codeberg.org/slabseller/accounts/internal/server"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:   "accounts",
		Usage:  "Serve the account recovery API",
		Flags:  config.Flags(),
		Action: server.Run,
		Commands: []*cli.Command{
			migrateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

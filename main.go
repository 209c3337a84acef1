// Copyright 2018 Indellient Inc. - All Rights Reserved
//
// vault-client: A client library and CLI for the vault HTTP API. Reads, writes, lists and deletes
// secrets, and creates, renews and revokes tokens.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Indellient/vault-client/pkg/cli"
)

// Set with -ldflags "-X main.BuildVersion=... -X main.BuildTimestamp=..."
var (
	BuildVersion   string
	BuildTimestamp string
)

func main() {
	// Interrupts cancel whatever request is in flight.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.BuildVersion = BuildVersion
	cli.BuildTimestamp = BuildTimestamp
	cli.Run(ctx, os.Args)
}

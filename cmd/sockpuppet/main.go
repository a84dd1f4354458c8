// Command sockpuppet extracts account features for fake-account detection.
//
// Usage:
//
//	sockpuppet extract johndoe https://instagram.com/janedoe
//	sockpuppet serve --addr :8080
//	sockpuppet session import myaccount   # reads browser cookies
//	sockpuppet session check
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/codeGROOVE-dev/sockpuppet/cmd/sockpuppet/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	commands.ExecuteContext(ctx)
}

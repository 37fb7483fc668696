// ttyrelay connects the local terminal to a TCP, TLS, SSH, serial or
// child-process endpoint, with an escape character for local commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ttyrelay/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	err := cmd.Execute(ctx, os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "ttyrelay: %v\n", err)
		os.Exit(1)
	}
}

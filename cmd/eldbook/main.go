// Command eldbook drives an eldbook log directory from the command line.
//
// Usage:
//
//	eldbook simulate [flags]   run a synthetic host against a book
//	eldbook sweep [flags]      archive stale raw partitions offline
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "simulate":
		err = runSimulate(ctx, os.Args[2:])
	case "sweep":
		err = runSweep(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "eldbook: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "eldbook: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: eldbook <command> [flags]

commands:
  simulate   run a synthetic host that records entity lifecycle events
  sweep      archive raw partitions of past hours in a log directory

Run "eldbook <command> -h" for the flags of a command.
`)
}

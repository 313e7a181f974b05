package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcdonaldj/genbak/internal/cli"
	"github.com/mcdonaldj/genbak/internal/tui"
)

// version is set via ldflags at build time: -ldflags "-X main.version=x.y.z"
var version = "dev"

func main() {
	// TUI mode browses the backups of one file
	if len(os.Args) >= 2 && (os.Args[1] == "ui" || os.Args[1] == "tui") {
		if len(os.Args) != 3 {
			fmt.Println("Usage: genbak ui <file>")
			os.Exit(1)
		}
		if err := tui.Run(os.Args[2]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cli.New(version)
	c.Context = ctx
	c.Run()
}

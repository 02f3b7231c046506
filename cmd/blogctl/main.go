// Command blogctl is the command-line client for the blog catalog.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/cmd/blogctl/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		if !cmd.Silent(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cmd.ExitCode(err))
	}
}

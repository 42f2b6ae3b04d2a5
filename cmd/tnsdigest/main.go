package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &cli{}
	if err := c.rootCmd().ExecuteContext(ctx); err != nil {
		if c.logger != nil {
			c.logger.Error("application stopped", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, "tnsdigest:", err)
		}
		cancel()
		os.Exit(1)
	}
}

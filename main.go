package main

import (
	"log/slog"
	"os"

	"matchday-tickets/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

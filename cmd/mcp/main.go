package main

import (
	"fmt"
	"os"

	"github.com/iammorganparry/clive/apps/semcache/internal/mcp"
)

func main() {
	serverURL := os.Getenv("SEMCACHE_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8742"
	}

	server := mcp.NewServer(serverURL, os.Getenv("API_KEY"))
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %s\n", err)
		os.Exit(1)
	}
}

// Package main is the container healthcheck: it probes /livez on the local
// server and exits 0 only on 200.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/garyellow/chatai/internal/config"
)

func main() {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "5000"
	}
	os.Exit(probe(fmt.Sprintf("http://localhost:%s/livez", port)))
}

func probe(url string) int {
	ctx, cancel := context.WithTimeout(context.Background(), config.HealthcheckRequest)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 1
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

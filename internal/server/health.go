package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WaitForHealthy polls baseURL's /health endpoint every interval until it
// answers 200 OK or ctx ends. baseURL may use a ws:// or http:// scheme.
func WaitForHealthy(ctx context.Context, baseURL string, interval time.Duration) error {
	healthURL := HTTPBase(baseURL) + "/health"
	client := &http.Client{Timeout: time.Second}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ok := probe(ctx, client, healthURL); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s not healthy: %w", baseURL, ctx.Err())
		case <-ticker.C:
		}
	}
}

func probe(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// HTTPBase turns a WebSocket endpoint such as ws://host:2137/ws into the
// server's HTTP root.
func HTTPBase(url string) string {
	url = strings.TrimSuffix(url, "/")
	url = strings.TrimSuffix(url, "/ws")
	switch {
	case strings.HasPrefix(url, "ws://"):
		return "http://" + strings.TrimPrefix(url, "ws://")
	case strings.HasPrefix(url, "wss://"):
		return "https://" + strings.TrimPrefix(url, "wss://")
	}
	return url
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ljluestc/balancer/internal/domain"
	"github.com/ljluestc/balancer/internal/health"
)

// newHTTPProbe builds the health probe the engine runs per server: a GET to
// the server's health path, healthy on any 2xx.
func newHTTPProbe(path string, timeout time.Duration) health.Probe {
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  true,
			MaxIdleConnsPerHost: 2,
		},
	}

	return func(ctx context.Context, srv *domain.Server) error {
		url := fmt.Sprintf("http://%s%s", srv.Address(), path)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "balancer-health/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("health probe returned status %d", resp.StatusCode)
		}
		return nil
	}
}

// Command healthcheck probes the bot's /healthz endpoint for container
// health checks. It exits non-zero unless the endpoint answers 200.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	url := flag.String("url", "", "health endpoint (default derived from HTTP_ADDR)")
	flag.Parse()

	target := *url
	if target == "" {
		target = healthURL(os.Getenv("HTTP_ADDR"))
	}
	if err := probe(context.Background(), &http.Client{Timeout: 3 * time.Second}, target); err != nil {
		log.Printf("healthcheck failed: %v", err)
		os.Exit(1)
	}
}

// healthURL turns a listen address like ":8080" into a loopback URL.
func healthURL(addr string) string {
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/healthz"
}

func probe(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return "unexpected status " + http.StatusText(e.code) }

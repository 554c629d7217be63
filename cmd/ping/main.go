// cmd/ping/main.go
//
// Container HEALTHCHECK for the agent:
//   HEALTHCHECK CMD ["/ping"]
//
// Exits 0 while the agent's local store answers, whether or not the remote
// notes API is reachable. -require-online also fails when the agent is
// offline.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort          = 8090
	healthEndpoint       = "/healthz"
	expectedHealthStatus = "ok"
	requestTimeout       = 2 * time.Second

	codeRequestFailed     = 2
	codeBadHTTPStatus     = 3
	codeDecodeError       = 4
	codeReportedUnhealthy = 5
	codeOffline           = 6
)

// healthResp mirrors the /healthz body.
type healthResp struct {
	Status  string `json:"status"`
	Online  bool   `json:"online"`
	Pending int    `json:"pending"`
	Error   string `json:"error"`
}

// checkError carries the process exit code for a failed check.
type checkError struct {
	code int
	msg  string
}

func (e *checkError) Error() string { return e.msg }

func fail(code int, format string, args ...any) error {
	return &checkError{code: code, msg: fmt.Sprintf(format, args...)}
}

func main() {
	requireOnline := flag.Bool("require-online", false, "Fail when the agent cannot reach the remote API")
	flag.Parse()

	port := detectPort()
	url := fmt.Sprintf("http://localhost:%d%s", port, healthEndpoint)

	h, err := check(&http.Client{Timeout: requestTimeout}, url, *requireOnline)
	if err != nil {
		log.Print(err)
		var ce *checkError
		if errors.As(err, &ce) {
			os.Exit(ce.code)
		}
		os.Exit(1)
	}

	log.Printf("agent healthy on port %d (online=%t, pending=%d)", port, h.Online, h.Pending)
}

// check queries url and validates the answer.
func check(client *http.Client, url string, requireOnline bool) (healthResp, error) {
	var h healthResp

	resp, err := client.Get(url)
	if err != nil {
		return h, fail(codeRequestFailed, "request failed: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		return h, fail(codeDecodeError, "decode error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return h, fail(codeBadHTTPStatus, "unexpected HTTP status %d: %s", resp.StatusCode, h.Error)
	}
	if h.Status != "" && h.Status != expectedHealthStatus {
		return h, fail(codeReportedUnhealthy, "agent reported unhealthy: %q", h.Status)
	}
	if requireOnline && !h.Online {
		return h, fail(codeOffline, "agent is offline with %d pending changes", h.Pending)
	}
	return h, nil
}

// detectPort parses APP_PORT and falls back to defaultPort.
func detectPort() int {
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			return p
		}
	}
	return defaultPort
}

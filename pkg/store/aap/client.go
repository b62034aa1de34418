package aap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// JobStates are the controller job states the job monitor counts.
var JobStates = []string{"pending", "running", "waiting", "failed", "new", "successful"}

// JobCounter counts controller jobs per state.
type JobCounter interface {
	JobCounts(ctx context.Context, states []string) (map[string]int64, error)
}

// Config holds the automation controller connection settings.
type Config struct {
	Host              string
	Username          string
	PasswordFile      string
	CAFile            string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client counts controller jobs through the /api/v2/jobs/ endpoint.
type Client struct {
	baseURL  *url.URL
	username string
	password string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("automation controller host is required")
	}
	host := cfg.Host
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid automation controller host %q: %w", cfg.Host, err)
	}

	raw, err := os.ReadFile(cfg.PasswordFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read password file: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		baseURL:  base,
		username: cfg.Username,
		password: strings.TrimSpace(string(raw)),
		http:     &http.Client{Transport: transport, Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

type jobsPage struct {
	Count int64 `json:"count"`
}

// JobCount returns the number of jobs in the given state.
func (c *Client) JobCount(ctx context.Context, status string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	endpoint := c.baseURL.JoinPath("api", "v2", "jobs")
	endpoint.Path += "/"
	q := endpoint.Query()
	q.Set("status", status)
	q.Set("page_size", "1")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s jobs: %w", status, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to query %s jobs: unexpected status %s", status, resp.Status)
	}

	var page jobsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return 0, fmt.Errorf("failed to decode %s jobs: %w", status, err)
	}

	zerolog.Ctx(ctx).Debug().Str("status", status).Int64("count", page.Count).Msg("counted jobs")
	return page.Count, nil
}

// JobCounts queries every state concurrently; any failure fails the whole call.
func (c *Client) JobCounts(ctx context.Context, states []string) (map[string]int64, error) {
	var mu sync.Mutex
	counts := make(map[string]int64, len(states))

	g, gctx := errgroup.WithContext(ctx)
	for _, state := range states {
		state := state
		g.Go(func() error {
			n, err := c.JobCount(gctx, state)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[state] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

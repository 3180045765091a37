// Package collect fetches company data from external sources through a
// caching, rate-limited, retrying gateway. Failures are returned as values;
// the gateway never panics and never lets one bad source fail a batch.
package collect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/praxis-labs/veracity/internal/resilience"
)

// Request describes one call to an external data source.
type Request struct {
	Source   string            `json:"source"`
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// Result is the outcome of one collection call. A failed call carries Err and
// Success=false instead of an error return, so batch callers can partition.
type Result struct {
	Source      string          `json:"source"`
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data,omitempty"`
	CollectedAt time.Time       `json:"collected_at"`
	Cached      bool            `json:"cached"`
	Err         string          `json:"error,omitempty"`
}

// Config tunes the gateway. Zero values fall back to the defaults below.
type Config struct {
	CacheTTL         time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxRetries       int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay       time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	MaxResponseBytes int64         `yaml:"max_response_bytes" mapstructure:"max_response_bytes"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	TotalTimeout     time.Duration `yaml:"total_timeout" mapstructure:"total_timeout"`
	PerHostRate      float64       `yaml:"per_host_rate" mapstructure:"per_host_rate"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 10 << 20
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.TotalTimeout <= 0 {
		c.TotalTimeout = 30 * time.Second
	}
	if c.PerHostRate <= 0 {
		c.PerHostRate = 5
	}
	if c.UserAgent == "" {
		c.UserAgent = "veracity/1.0"
	}
	return c
}

// Gateway is the shared entry point for all outbound source calls.
type Gateway struct {
	cfg    Config
	client *http.Client
	cache  Cache

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGateway creates a Gateway. A nil cache disables caching.
func NewGateway(cfg Config, cache Cache) *Gateway {
	cfg = cfg.withDefaults()
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Gateway{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.TotalTimeout,
			Transport: transport,
		},
		cache:    cache,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (g *Gateway) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	lim, ok := g.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(g.cfg.PerHostRate), int(g.cfg.PerHostRate))
		g.limiters[host] = lim
	}
	return lim
}

// CacheKey derives the deterministic cache key for a request: sha256 over the
// source, endpoint, and params in sorted-key order.
func CacheKey(req Request) string {
	h := sha256.New()
	io.WriteString(h, req.Source)
	io.WriteString(h, "|")
	io.WriteString(h, req.Endpoint)

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		io.WriteString(h, "|")
		io.WriteString(h, k)
		io.WriteString(h, "=")
		io.WriteString(h, req.Params[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CollectFromAPI performs one GET against a source endpoint with caching,
// rate limiting, bounded retries, and a response size ceiling.
func (g *Gateway) CollectFromAPI(ctx context.Context, req Request) Result {
	res := Result{Source: req.Source, CollectedAt: time.Now().UTC()}

	key := CacheKey(req)
	if g.cache != nil {
		if data, err := g.cache.Get(ctx, key); err != nil {
			zap.L().Warn("collection cache read failed",
				zap.String("source", req.Source),
				zap.Error(err),
			)
		} else if data != nil {
			res.Success = true
			res.Data = data
			res.Cached = true
			return res
		}
	}

	policy := resilience.Policy{
		MaxAttempts:  g.cfg.MaxRetries,
		InitialDelay: g.cfg.RetryDelay,
		Multiplier:   2.0,
		OnRetry:      resilience.LogRetries(req.Source, "collect"),
	}

	data, err := resilience.Retry(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return g.fetch(ctx, req)
	})
	if err != nil {
		res.Err = err.Error()
		zap.L().Warn("collection failed",
			zap.String("source", req.Source),
			zap.String("endpoint", req.Endpoint),
			zap.Error(err),
		)
		return res
	}

	res.Success = true
	res.Data = data

	if g.cache != nil {
		if err := g.cache.Set(ctx, key, data, g.cfg.CacheTTL); err != nil {
			zap.L().Warn("collection cache write failed",
				zap.String("source", req.Source),
				zap.Error(err),
			)
		}
	}
	return res
}

func (g *Gateway) fetch(ctx context.Context, req Request) ([]byte, error) {
	endpoint := req.Endpoint
	if len(req.Params) > 0 {
		q := url.Values{}
		for k, v := range req.Params {
			q.Set(k, v)
		}
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = endpoint + sep + q.Encode()
	}

	if err := g.limiterFor(endpoint).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "collect: rate limiter wait")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "collect: build request for %s", req.Source)
	}
	httpReq.Header.Set("User-Agent", g.cfg.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, resilience.Transient(eris.Wrapf(err, "collect: %s", req.Source), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("collect: %s returned status %d", req.Source, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.Transient(err, resp.StatusCode)
		}
		return nil, err
	}

	// Read one byte past the ceiling to distinguish at-limit from over-limit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, g.cfg.MaxResponseBytes+1))
	if err != nil {
		return nil, resilience.Transient(eris.Wrapf(err, "collect: read %s response", req.Source), 0)
	}
	if int64(len(body)) > g.cfg.MaxResponseBytes {
		return nil, eris.Errorf("collect: %s response exceeds %d bytes", req.Source, g.cfg.MaxResponseBytes)
	}
	return body, nil
}

// CollectFromMultipleSources fans requests out concurrently and returns
// results in input order. Individual failures land in their Result slot.
func (g *Gateway) CollectFromMultipleSources(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(8)
	for i, req := range reqs {
		grp.Go(func() error {
			results[i] = g.CollectFromAPI(ctx, req)
			return nil
		})
	}
	grp.Wait() //nolint:errcheck

	return results
}

// Partition splits results into successful and failed slices, preserving order.
func Partition(results []Result) (ok, failed []Result) {
	for _, r := range results {
		if r.Success {
			ok = append(ok, r)
		} else {
			failed = append(failed, r)
		}
	}
	return ok, failed
}

// SourceReliability is the success ratio over a source's call history, or 0.5
// when there is no history to judge by.
func SourceReliability(history []Result) float64 {
	if len(history) == 0 {
		return 0.5
	}
	successes := 0
	for _, r := range history {
		if r.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(history))
}

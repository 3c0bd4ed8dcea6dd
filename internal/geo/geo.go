// Package geo maps a client IP to a country code through an external lookup
// service, degrading to a default country.
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/metrics"
)

// DefaultCountry is used for private addresses and failed lookups.
const DefaultCountry = "DK"

// Config configures the lookup client. Endpoint contains an "{ip}" placeholder.
type Config struct {
	Endpoint       string
	Timeout        time.Duration
	DefaultCountry string
}

// Locator resolves a client IP to a country code. It never fails.
type Locator interface {
	Country(ctx context.Context, ip string) string
}

// Client queries the lookup service behind a circuit breaker. Concurrent lookups of
// the same IP share one upstream call.
type Client struct {
	endpoint string
	timeout  time.Duration
	fallback string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[string]
	group    singleflight.Group
	log      *zap.Logger
}

var _ Locator = (*Client)(nil)

// New builds a Client. An empty endpoint disables upstream lookups.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.DefaultCountry == "" {
		cfg.DefaultCountry = DefaultCountry
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		fallback: strings.ToUpper(cfg.DefaultCountry),
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
	c.cb = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "geo-lookup",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

// IsPrivate reports loopback, private, link-local and unspecified addresses.
func IsPrivate(addr netip.Addr) bool {
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

// Country resolves ip, memoized for the request when ctx carries a memo.
// Private addresses resolve to DK; failures resolve to the configured default.
func (c *Client) Country(ctx context.Context, ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		metrics.GeoLookups.WithLabelValues("fallback").Inc()
		return c.fallback
	}
	addr = addr.Unmap()
	if IsPrivate(addr) {
		metrics.GeoLookups.WithLabelValues("private").Inc()
		return DefaultCountry
	}
	m := memoFrom(ctx)
	if cc, ok := m.get(addr.String()); ok {
		return cc
	}
	cc, err := c.Lookup(ctx, addr.String())
	if err != nil {
		metrics.GeoLookups.WithLabelValues("fallback").Inc()
		c.log.Warn("geolocation failed, using default country",
			zap.String("ip", addr.String()),
			zap.String("country", c.fallback),
			zap.Error(err),
		)
		cc = c.fallback
	} else {
		metrics.GeoLookups.WithLabelValues("upstream").Inc()
	}
	m.put(addr.String(), cc)
	return cc
}

// Lookup asks the upstream service for ip's country. Failures, including an open
// breaker and deadline expiry, are errs.ErrUpstreamUnavailable.
func (c *Client) Lookup(ctx context.Context, ip string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("%w: no geolocation endpoint", errs.ErrUpstreamUnavailable)
	}
	v, err, _ := c.group.Do(ip, func() (any, error) {
		return c.cb.Execute(func() (string, error) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
			defer cancel()
			return c.fetch(ctx, ip)
		})
	})
	if err != nil {
		if errors.Is(err, errs.ErrUpstreamUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}
	return v.(string), nil
}

type lookupResponse struct {
	CountryCode string `json:"country_code"`
	Country     string `json:"country"`
}

func (c *Client) fetch(ctx context.Context, ip string) (string, error) {
	u := strings.ReplaceAll(c.endpoint, "{ip}", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("geolocation status %d", resp.StatusCode)
	}
	var out lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode geolocation: %w", err)
	}
	cc := strings.ToUpper(strings.TrimSpace(out.CountryCode))
	if cc == "" {
		cc = strings.ToUpper(strings.TrimSpace(out.Country))
	}
	if len(cc) != 2 {
		return "", fmt.Errorf("geolocation returned %q", cc)
	}
	return cc, nil
}

type memo struct {
	mu sync.Mutex
	m  map[string]string
}

func (m *memo) get(ip string) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cc, ok := m.m[ip]
	return cc, ok
}

func (m *memo) put(ip, cc string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[ip] = cc
	m.mu.Unlock()
}

type memoKey struct{}

// WithMemo returns a context whose lookups are cached until the context is dropped.
func WithMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, &memo{m: map[string]string{}})
}

func memoFrom(ctx context.Context) *memo {
	m, _ := ctx.Value(memoKey{}).(*memo)
	return m
}

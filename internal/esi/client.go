package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"thera-watch/internal/metrics"
)

type Options struct {
	BaseURL    string // e.g. https://esi.evetech.net/latest
	Datasource string
	Language   string

	Timeout       time.Duration
	RouteCacheTTL time.Duration // 0 disables the route cache

	HTTPClient *http.Client // optional, mainly for tests
}

// Client talks to the ESI search and route endpoints.
type Client struct {
	baseURL    string
	datasource string
	language   string

	http *http.Client
	sink metrics.Sink

	routes *ttlcache.Cache[routeKey, int]
}

type routeKey struct {
	from, to int64
}

func New(opts Options, sink metrics.Sink) *Client {
	if sink == nil {
		sink = metrics.Nop{}
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		datasource: opts.Datasource,
		language:   opts.Language,
		http:       hc,
		sink:       sink,
	}
	if c.datasource == "" {
		c.datasource = "tranquility"
	}
	if c.language == "" {
		c.language = "en"
	}

	if opts.RouteCacheTTL > 0 {
		c.routes = ttlcache.New[routeKey, int](
			ttlcache.WithTTL[routeKey, int](opts.RouteCacheTTL),
			ttlcache.WithDisableTouchOnHit[routeKey, int](),
		)
	}

	return c
}

// ----------------------------------------------------------------------
// Search
// ----------------------------------------------------------------------

type searchResponse struct {
	SolarSystem []int64 `json:"solar_system"`
}

// ResolveSystem looks up the solar system id for name.
// found is false when ESI knows no system by that name. Any transport,
// status or decode failure is returned as err.
func (c *Client) ResolveSystem(ctx context.Context, name string) (id int64, found bool, err error) {
	q := url.Values{}
	q.Set("categories", "solar_system")
	q.Set("datasource", c.datasource)
	q.Set("language", c.language)
	q.Set("search", name)
	q.Set("strict", "false")

	u := c.baseURL + "/search/?" + q.Encode()

	resp, err := c.get(ctx, u)
	if err != nil {
		return 0, false, fmt.Errorf("ESI search for %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, false, fmt.Errorf("ESI search for %q: http %d: %s", name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return 0, false, fmt.Errorf("decoding ESI search for %q: %w", name, err)
	}

	if len(sr.SolarSystem) == 0 {
		slog.Warn("could not find system id", "system", name)
		return 0, false, nil
	}

	slog.Debug("resolved system id", "system", name, "ids", sr.SolarSystem)
	return sr.SolarSystem[0], true, nil
}

// ----------------------------------------------------------------------
// Route
// ----------------------------------------------------------------------

// Route is the outcome of a route lookup. A failed lookup and a missing
// route are both !Found.
type Route struct {
	Found bool
	Jumps int
}

// Hops collapses the route to a jump count, 0 meaning no route.
func (r Route) Hops() int {
	if !r.Found {
		return 0
	}
	return r.Jumps
}

// Route asks ESI for the route between two systems. It never fails:
// transport, status and decode errors are logged and reported as !Found.
func (c *Client) Route(ctx context.Context, from, to int64) Route {
	key := routeKey{from: from, to: to}
	if c.routes != nil {
		if item := c.routes.Get(key); item != nil {
			return Route{Found: true, Jumps: item.Value()}
		}
	}

	u := fmt.Sprintf("%s/route/%d/%d/", c.baseURL, from, to)

	resp, err := c.get(ctx, u)
	if err != nil {
		slog.Error("failed to connect to ESI", "from", from, "to", to, "err", err)
		return Route{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		slog.Warn("ESI route returned unexpected status",
			"from", from,
			"to", to,
			"status", resp.StatusCode,
		)
		return Route{}
	}

	var waypoints []int64
	if err := json.NewDecoder(resp.Body).Decode(&waypoints); err != nil {
		slog.Error("failed to decode ESI route", "from", from, "to", to, "err", err)
		return Route{}
	}

	// origin and destination are both in the list
	if len(waypoints) < 2 {
		slog.Debug("ESI route has no jumps", "from", from, "to", to, "waypoints", len(waypoints))
		return Route{}
	}

	jumps := len(waypoints) - 1
	if c.routes != nil {
		c.routes.Set(key, jumps, ttlcache.DefaultTTL)
	}
	return Route{Found: true, Jumps: jumps}
}

// get counts every dispatched request, successful or not.
func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.sink.IncESICalls()
	return c.http.Do(req)
}

package evescout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Wormhole is one published Thera connection, reduced to the fields the
// poller consumes.
type Wormhole struct {
	ID                          int64
	DestinationSystemID         int64
	DestinationSystemName       string
	DestinationRegionName       string
	WormholeDestinationSystemID int64
	InSignature                 string // wormholeDestinationSignatureId
	OutSignature                string // signatureId
}

// RouteOrigin is the system routes are computed from.
func (w Wormhole) RouteOrigin() int64 {
	if w.WormholeDestinationSystemID != 0 {
		return w.WormholeDestinationSystemID
	}
	return w.DestinationSystemID
}

type wireWormhole struct {
	ID                     flexInt `json:"id"`
	DestinationSolarSystem struct {
		ID     flexInt `json:"id"`
		Name   string  `json:"name"`
		Region struct {
			Name string `json:"name"`
		} `json:"region"`
	} `json:"destinationSolarSystem"`
	WormholeDestinationSolarSystemID flexInt `json:"wormholeDestinationSolarSystemId"`
	WormholeDestinationSignatureID   string  `json:"wormholeDestinationSignatureId"`
	SignatureID                      string  `json:"signatureId"`
}

// flexInt accepts ids sent either as numbers or numeric strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer id %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

type Client struct {
	url  string
	http *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Snapshot fetches every currently published wormhole, in the order the
// feed delivers them. It does not retry.
func (c *Client) Snapshot(ctx context.Context) ([]Wormhole, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var wire []wireWormhole
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", c.url, err)
	}

	out := make([]Wormhole, 0, len(wire))
	for _, w := range wire {
		out = append(out, Wormhole{
			ID:                          int64(w.ID),
			DestinationSystemID:         int64(w.DestinationSolarSystem.ID),
			DestinationSystemName:       w.DestinationSolarSystem.Name,
			DestinationRegionName:       w.DestinationSolarSystem.Region.Name,
			WormholeDestinationSystemID: int64(w.WormholeDestinationSolarSystemID),
			InSignature:                 w.WormholeDestinationSignatureID,
			OutSignature:                w.SignatureID,
		})
	}
	return out, nil
}

// StatusError is returned for a non-2xx feed response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("eve-scout returned http %d: %s", e.Code, e.Body)
}

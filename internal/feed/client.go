package feed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quic-go/quic-go/http3"

	"github.com/orizon-lang/tierforge/internal/program"
)

// Client fetches programs from a feed.
type Client struct {
	http *http.Client
	base string
}

// NewClient talks HTTP/3 to the feed at addr (host:port).
func NewClient(addr string, tlsCfg *tls.Config, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Transport: &http3.Transport{TLSClientConfig: tlsCfg}, Timeout: timeout},
		base: "https://" + addr,
	}
}

// Request selects what Fetch asks for. A nil Seed lets the server choose.
type Request struct {
	Seed     *int64
	Template string
}

// Fetch asks the feed for a freshly synthesized program.
func (c *Client) Fetch(ctx context.Context, req Request) (*program.Program, error) {
	q := url.Values{}
	if req.Seed != nil {
		q.Set("seed", strconv.FormatInt(*req.Seed, 10))
	}

	if req.Template != "" {
		q.Set("template", req.Template)
	}

	u := c.base + "/program"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	return c.get(ctx, u)
}

// Get fetches a stored program by id.
func (c *Client) Get(ctx context.Context, id string) (*program.Program, error) {
	return c.get(ctx, c.base+"/program/"+url.PathEscape(id))
}

func (c *Client) get(ctx context.Context, u string) (*program.Program, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: %s: %s", u, resp.Status, strings.TrimSpace(string(body)))
	}

	var p program.Program
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}

	return &p, nil
}

// Close releases the QUIC connections.
func (c *Client) Close() error {
	if tr, ok := c.http.Transport.(*http3.Transport); ok {
		return tr.Close()
	}

	return nil
}

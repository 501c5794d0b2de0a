// Package mapbox fetches static map renderings for checkin posts.
package mapbox

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	zoom   = 14
	width  = 748
	height = 420
)

// styles are fetched as a pair so the site can match its color scheme.
var styles = []string{"dark-v11", "light-v11"}

// Client fetches images from the Mapbox Static Images API.
type Client struct {
	token string
	base  string
	http  *http.Client
}

// New creates a client with the given access token.
func New(token string) *Client {
	return &Client{
		token: token,
		base:  "https://api.mapbox.com",
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Pair holds matching dark and light renderings of one location.
type Pair struct {
	Dark  []byte
	Light []byte
}

// StaticPair fetches the dark and light map images for a coordinate. The
// two fetches have no ordering dependency and run concurrently.
func (c *Client) StaticPair(ctx context.Context, lat, lon float64) (*Pair, error) {
	images := make([][]byte, len(styles))
	g, gctx := errgroup.WithContext(ctx)
	for i, style := range styles {
		g.Go(func() error {
			img, err := c.fetch(gctx, style, lat, lon)
			if err != nil {
				return fmt.Errorf("mapbox: fetch %s: %w", style, err)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Pair{Dark: images[0], Light: images[1]}, nil
}

func (c *Client) fetch(ctx context.Context, style string, lat, lon float64) ([]byte, error) {
	rawurl := fmt.Sprintf("%s/styles/v1/mapbox/%s/static/%s,%s,%d/%dx%d@2x?access_token=%s",
		c.base, style,
		strconv.FormatFloat(lon, 'f', -1, 64),
		strconv.FormatFloat(lat, 'f', -1, 64),
		zoom, width, height, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

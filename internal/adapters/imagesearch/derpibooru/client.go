package derpibooru

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mare-records/internal/platform/httpclient"
	"mare-records/internal/ports/images"
)

const (
	DefaultBaseURL = "https://derpibooru.org"
	searchPath     = "/api/v1/json/search/images"
	userAgent      = "mare-records (+https://github.com/nitkach)"
)

var ErrUpstream = errors.New("image search upstream error")

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	http *httpclient.Client
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.New(base, timeout)
	if err != nil {
		return nil, err
	}
	hc.UserAgent = userAgent
	return &Client{http: hc}, nil
}

type searchResponse struct {
	Images []struct {
		ID              int64 `json:"id"`
		Representations struct {
			Medium string `json:"medium"`
		} `json:"representations"`
	} `json:"images"`
}

// FindImage pide una imagen aleatoria con score >= 100 etiquetada con el nombre.
func (c *Client) FindImage(ctx context.Context, name string) (images.Image, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return images.Image{}, images.ErrNoImage
	}

	var resp searchResponse
	err := c.http.DoJSON(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   searchPath,
		Query: url.Values{
			"per_page": {"1"},
			"sf":       {"random"},
			"q":        {searchTags(name)},
		},
	}, &resp)
	if err != nil {
		return images.Image{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if len(resp.Images) == 0 || resp.Images[0].Representations.Medium == "" {
		return images.Image{}, images.ErrNoImage
	}
	img := resp.Images[0]
	return images.Image{ID: img.ID, URL: img.Representations.Medium}, nil
}

func searchTags(name string) string {
	return fmt.Sprintf("score.gte:100, %s, pony, mare, !irl", name)
}

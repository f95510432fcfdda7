package cdn

import (
	"context"
	"fmt"
	"path"
	"strings"

	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"hlspack/internal/services"
)

// Invalidator clears cached package paths after a re-upload.
type Invalidator interface {
	InvalidatePackage(ctx context.Context, slug string) error
}

// Option configures the client.
type Option func(*Client)

// WithCredentialsFile points the client at a service-account key file.
func WithCredentialsFile(path string) Option {
	return func(c *Client) {
		if strings.TrimSpace(path) != "" {
			c.clientOptions = append(c.clientOptions, option.WithCredentialsFile(path))
		}
	}
}

// Client invalidates Cloud CDN caches through the URL map of the
// load balancer fronting the bucket.
type Client struct {
	project       string
	urlMap        string
	prefix        string
	service       *compute.Service
	clientOptions []option.ClientOption
}

// New builds a compute client for the given project and URL map.
func New(ctx context.Context, project, urlMap, pathPrefix string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(project) == "" || strings.TrimSpace(urlMap) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cdn", "connect", "project and url map are required", nil)
	}
	c := &Client{project: project, urlMap: urlMap, prefix: pathPrefix}
	for _, opt := range opts {
		opt(c)
	}

	service, err := compute.NewService(ctx, c.clientOptions...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cdn", "connect", "create compute client", err)
	}
	c.service = service
	return c, nil
}

// InvalidatePackage clears every cached object under the package path.
// The call is asynchronous on the Google side; completion is not awaited.
func (c *Client) InvalidatePackage(ctx context.Context, slug string) error {
	rule := &compute.CacheInvalidationRule{Path: c.pathFor(slug)}
	call := c.service.UrlMaps.InvalidateCache(c.project, c.urlMap, rule)
	if _, err := call.Context(ctx).Do(); err != nil {
		return services.Wrap(services.ErrTransient, "cdn", "invalidate",
			fmt.Sprintf("invalidate %s on url map %s", rule.Path, c.urlMap), err)
	}
	return nil
}

func (c *Client) pathFor(slug string) string {
	return path.Join("/", c.prefix, slug) + "/*"
}

var _ Invalidator = (*Client)(nil)

package gcs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"hlspack/internal/services"
)

// uploadWorkers bounds concurrent object writes. Segment counts run into
// the hundreds for long sources.
const uploadWorkers = 8

// Result summarizes one package upload.
type Result struct {
	Objects  int64
	Bytes    int64
	Location string
}

// Uploader pushes a package directory to object storage.
type Uploader interface {
	UploadDir(ctx context.Context, localDir, remotePrefix string) (*Result, error)
	Close() error
}

// Option configures the client.
type Option func(*Client)

// WithCredentialsFile points the client at a service-account key file
// instead of ambient credentials.
func WithCredentialsFile(path string) Option {
	return func(c *Client) {
		if strings.TrimSpace(path) != "" {
			c.clientOptions = append(c.clientOptions, option.WithCredentialsFile(path))
		}
	}
}

// Client uploads packages to a Google Cloud Storage bucket.
type Client struct {
	bucket        string
	prefix        string
	client        *storage.Client
	clientOptions []option.ClientOption
}

// New connects to the bucket and verifies it is reachable.
func New(ctx context.Context, bucket, prefix string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "connect", "bucket is required", nil)
	}
	c := &Client{bucket: bucket, prefix: strings.Trim(prefix, "/")}
	for _, opt := range opts {
		opt(c)
	}

	client, err := storage.NewClient(ctx, c.clientOptions...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "connect", "create storage client", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrConfiguration, "upload", "connect", fmt.Sprintf("access bucket %s", bucket), err)
	}
	c.client = client
	return c, nil
}

// UploadDir mirrors localDir into the bucket under remotePrefix. Object
// metadata gets HLS-appropriate content types and cache lifetimes.
func (c *Client) UploadDir(ctx context.Context, localDir, remotePrefix string) (*Result, error) {
	root := c.objectName(remotePrefix, "")
	var objects, bytes atomic.Int64

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(uploadWorkers)

	walkErr := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		object := c.objectName(remotePrefix, filepath.ToSlash(rel))
		group.Go(func() error {
			n, err := c.uploadFile(ctx, p, object)
			if err != nil {
				return err
			}
			objects.Add(1)
			bytes.Add(n)
			return nil
		})
		return nil
	})
	// A failed worker cancels the walk through the group context; its error
	// is the root cause, so it wins over the walk's cancellation error.
	err := group.Wait()
	if err == nil {
		err = walkErr
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "upload", "upload directory", fmt.Sprintf("upload %s", localDir), err)
	}

	return &Result{
		Objects:  objects.Load(),
		Bytes:    bytes.Load(),
		Location: "gs://" + c.bucket + "/" + root,
	}, nil
}

func (c *Client) uploadFile(ctx context.Context, localPath, object string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	w := c.client.Bucket(c.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType(object)
	w.CacheControl = cacheControl(object)

	n, err := io.Copy(w, file)
	if err != nil {
		_ = w.Close()
		return 0, fmt.Errorf("write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", object, err)
	}
	return n, nil
}

func (c *Client) objectName(remotePrefix, rel string) string {
	parts := make([]string, 0, 3)
	if c.prefix != "" {
		parts = append(parts, c.prefix)
	}
	if trimmed := strings.Trim(remotePrefix, "/"); trimmed != "" {
		parts = append(parts, trimmed)
	}
	if rel != "" {
		parts = append(parts, rel)
	}
	return path.Join(parts...)
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func contentType(object string) string {
	switch strings.ToLower(path.Ext(object)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".vtt":
		return "text/vtt"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func cacheControl(object string) string {
	switch strings.ToLower(path.Ext(object)) {
	case ".m3u8", ".vtt":
		// Re-packaging replaces playlists and cue tracks in place.
		return "public, max-age=60"
	case ".ts", ".jpg", ".jpeg":
		return "public, max-age=31536000, immutable"
	default:
		return "public, max-age=300"
	}
}

var _ Uploader = (*Client)(nil)

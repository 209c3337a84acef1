package vault

import (
	"context"
	"net/http"
	"net/url"
)

// Logical reads and writes arbitrary secrets by path, e.g. "secret/foo".
type Logical struct {
	client *Client
}

// PathOption adjusts how a Logical path is built.
type PathOption func(*pathOptions)

type pathOptions struct {
	prefix string
}

// WithPathPrefix prepends prefix (usually the mount, like "secret") to the path.
func WithPathPrefix(prefix string) PathOption {
	return func(o *pathOptions) {
		o.prefix = prefix
	}
}

func logicalPath(p string, opts []PathOption) (string, error) {
	var o pathOptions
	for _, opt := range opts {
		opt(&o)
	}

	joined := JoinPath(o.prefix, p)
	if joined == "" {
		return "", ErrEmptyPath
	}

	return EncodePath(joined), nil
}

// List returns the names under path. Subdirectories end with "/". A path with nothing under
// it gives an empty slice, not an error.
func (l *Logical) List(ctx context.Context, path string, opts ...PathOption) ([]string, error) {
	p, err := logicalPath(path, opts)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("list", "true")

	return decodeKeys(l.client.do(ctx, http.MethodGet, p, query, nil))
}

// Read returns the secret at path, or nil if there is none.
func (l *Logical) Read(ctx context.Context, path string, opts ...PathOption) (*Secret, error) {
	p, err := logicalPath(path, opts)
	if err != nil {
		return nil, err
	}

	return decodeSecret(l.client.do(ctx, http.MethodGet, p, nil, nil))
}

// Write replaces whatever is stored at path with data. The response is only a Secret for
// backends that answer writes with a body; a plain key/value store returns nil.
func (l *Logical) Write(ctx context.Context, path string, data map[string]interface{}, opts ...PathOption) (*Secret, error) {
	p, err := logicalPath(path, opts)
	if err != nil {
		return nil, err
	}

	if data == nil {
		data = map[string]interface{}{}
	}

	return decodeSecret(l.client.do(ctx, http.MethodPut, p, nil, data))
}

// Delete removes the secret at path. Deleting something that isn't there is not an error.
func (l *Logical) Delete(ctx context.Context, path string, opts ...PathOption) (bool, error) {
	p, err := logicalPath(path, opts)
	if err != nil {
		return false, err
	}

	if _, err := checkResponse(l.client.do(ctx, http.MethodDelete, p, nil, nil)); err != nil {
		return false, err
	}

	return true, nil
}

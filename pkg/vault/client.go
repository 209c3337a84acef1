package vault

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Indellient/vault-client/pkg/config"
	"github.com/Indellient/vault-client/pkg/logger"
)

// A Client talks to the vault API through a Transport. It holds no state besides the token and
// the resource clients, which are built once on first use and shared by all callers.
type Client struct {
	config    *config.Config
	transport Transport
	metrics   *Metrics
	token     atomic.Value

	logicalOnce   sync.Once
	logical       *Logical
	authTokenOnce sync.Once
	authToken     *AuthToken
	appRoleOnce   sync.Once
	appRole       *AppRole
	sysOnce       sync.Once
	sys           *Sys
}

// Option customizes a Client in NewClient.
type Option func(*Client)

// WithTransport replaces the default go-resty transport.
func WithTransport(transport Transport) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithMetrics makes the default transport record request metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// Logical returns the client for the generic secret backends.
func (c *Client) Logical() *Logical {
	c.logicalOnce.Do(func() {
		c.logical = &Logical{client: c}
	})

	return c.logical
}

// AuthToken returns the client for the token auth backend.
func (c *Client) AuthToken() *AuthToken {
	c.authTokenOnce.Do(func() {
		c.authToken = &AuthToken{client: c}
	})

	return c.authToken
}

// AppRole returns the client for the approle auth backend.
func (c *Client) AppRole() *AppRole {
	c.appRoleOnce.Do(func() {
		c.appRole = &AppRole{client: c}
	})

	return c.appRole
}

// Sys returns the client for the sys backend.
func (c *Client) Sys() *Sys {
	c.sysOnce.Do(func() {
		c.sys = &Sys{client: c}
	})

	return c.sys
}

// Token is the token sent with every request.
func (c *Client) Token() string {
	token, _ := c.token.Load().(string)
	return token
}

// SetToken changes the token for all subsequent requests. Safe to call concurrently.
func (c *Client) SetToken(token string) {
	c.token.Store(token)
}

// Address is the configured vault address.
func (c *Client) Address() string {
	return c.config.Address
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*RawResponse, error) {
	req := &Request{
		Method: method,
		Path:   path,
		Query:  query,
		Header: http.Header{},
		Body:   body,
	}

	if token := c.Token(); token != "" {
		req.Header.Set(HeaderToken, token)
	}

	if c.config.Namespace != "" {
		req.Header.Set(HeaderNamespace, c.config.Namespace)
	}

	start := time.Now()
	resp, err := c.transport.Do(ctx, req)

	fields := log.Fields{
		"method":   method,
		"path":     RedactTokens(path),
		"duration": time.Since(start).String(),
	}

	if err != nil {
		logger.WithFields(fields).Debugf("Request failed: %v", RedactTokens(err.Error()))
		return nil, err
	}

	fields["status"] = resp.StatusCode
	logger.WithFields(fields).Debugf("Response received (%d bytes)", len(resp.Body))

	return resp, nil
}

package vault

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gopkg.in/resty.v1"

	"github.com/Indellient/vault-client/pkg/config"
	"github.com/Indellient/vault-client/pkg/logger"
)

const (
	HeaderToken     = "X-Vault-Token"
	HeaderNamespace = "X-Vault-Namespace"
)

var (
	TLSHandshakeTimeout   = 10 * time.Second
	ResponseHeaderTimeout = 20 * time.Second
	ExpectContinueTimeout = 10 * time.Second
	KeepAlive             = 30 * time.Second

	// Status codes the transport retries on before handing the response back.
	RetryStatusCodes = []int{
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}

	// Methods safe to send twice. A POST such as auth/token/create may already have minted a
	// token when the gateway fails, so it is never retried.
	RetryMethods = []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPut,
		http.MethodDelete,
	}
)

// Request is one call against the API. Path is already percent-encoded and relative to /v1.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   interface{}
}

// RawResponse is what came back over the wire, before any envelope decoding.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport issues requests against the API. Network-level failures are returned as errors;
// any HTTP status, including 4xx and 5xx, is a successful round trip.
type Transport interface {
	Do(ctx context.Context, req *Request) (*RawResponse, error)
}

// RestyTransport is the go-resty based Transport. Connection reuse, TLS, timeouts and retries
// all live here.
type RestyTransport struct {
	client  *resty.Client
	metrics *Metrics
}

// NewRestyTransport sets up the go-resty client to interact with the vault API service. Retry
// count and wait come from cfg; only gateway/server failures on idempotent methods are retried.
func NewRestyTransport(cfg *config.Config, metrics *Metrics) *RestyTransport {
	client := resty.New()
	client.SetLogger(restyLogWriter{})
	client.SetHeader("Content-Type", "application/json")
	client.SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: KeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: ResponseHeaderTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.Insecure},
	})
	client.SetTimeout(cfg.Timeout)
	client.SetHostURL(fmt.Sprintf("%v/v1", cfg.BaseURL()))

	if cfg.MaxRetries > 0 {
		// resty counts attempts, the config counts retries after the first attempt.
		client.SetRetryCount(cfg.MaxRetries + 1)
		client.SetRetryWaitTime(durationOr(cfg.RetryWait, config.DefaultRetryWait))
		client.SetRetryMaxWaitTime(durationOr(cfg.RetryMaxWait, config.DefaultRetryMaxWait))
		client.AddRetryCondition(shouldRetry)
	}

	return &RestyTransport{client: client, metrics: metrics}
}

// resty runs retry conditions even when the request never left, with a nil response.
func shouldRetry(r *resty.Response) (bool, error) {
	if r == nil || r.Request == nil || !containsString(r.Request.Method, RetryMethods) {
		return false, nil
	}

	return contains(r.StatusCode(), RetryStatusCodes), nil
}

func containsString(expected string, items []string) bool {
	for _, item := range items {
		if item == expected {
			return true
		}
	}

	return false
}

// restyLogWriter sends resty's own log lines through the package logger.
type restyLogWriter struct{}

func (restyLogWriter) Write(p []byte) (int, error) {
	logger.Debugf("%s", RedactTokens(strings.TrimSpace(string(p))))
	return len(p), nil
}

// resty's backoff jitter panics on a zero wait.
func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}

	return d
}

func (t *RestyTransport) Do(ctx context.Context, req *Request) (*RawResponse, error) {
	request := t.client.NewRequest().SetContext(ctx)

	for key, values := range req.Header {
		for _, value := range values {
			request.Header.Add(key, value)
		}
	}

	for key, values := range req.Query {
		for _, value := range values {
			request.QueryParam.Add(key, value)
		}
	}

	if req.Body != nil {
		body, err := json.Marshal(req.Body)
		if err != nil {
			t.metrics.observeFailure(req.Method)
			return nil, fmt.Errorf("unable to encode request body: %w", err)
		}
		request.SetBody(body)
	}

	start := time.Now()
	response, err := request.Execute(req.Method, "/"+req.Path)
	if err != nil {
		t.metrics.observeFailure(req.Method)
		return nil, err
	}

	t.metrics.observe(req.Method, response.StatusCode(), time.Since(start))

	return &RawResponse{
		StatusCode: response.StatusCode(),
		Header:     response.Header(),
		Body:       response.Body(),
	}, nil
}

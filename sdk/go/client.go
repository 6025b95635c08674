// Package tasksdk is the client for the TaskService RPC protocol: JSON
// messages POSTed over HTTPS to /rpc/TaskService/<Method>.
package tasksdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PathCreateTask   = "/rpc/TaskService/CreateTask"
	PathCompleteTask = "/rpc/TaskService/CompleteTask"
)

// RequestIDHeader correlates a client call with the service logs.
const RequestIDHeader = "X-Request-Id"

// Client is a TaskService client. Each call is a single request; nothing is
// retried.
type Client struct {
	BaseURL string
	// RootCAs verifies the service certificate. Nil uses the system pool.
	RootCAs    *x509.CertPool
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// LoadRootCAs reads a PEM bundle of trusted certificates.
func LoadRootCAs(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("certificate %s: no PEM certificates found", path)
	}
	return pool, nil
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// UnreachableError reports a service that could not be dialed.
type UnreachableError struct {
	Addr string
	Err  error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("could not connect to %s (probably because the server is offline)", e.Addr)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// CreateTask submits a new task. A nil error means the exchange completed;
// the response still has to be checked with Err.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (CreateTaskResponse, error) {
	var resp CreateTaskResponse
	err := c.do(ctx, PathCreateTask, req, &resp)
	return resp, err
}

// CompleteTask marks a stored task as completed.
func (c *Client) CompleteTask(ctx context.Context, req CompleteTaskRequest) (CompleteTaskResponse, error) {
	var resp CompleteTaskResponse
	err := c.do(ctx, PathCompleteTask, req, &resp)
	return resp, err
}

// httpClient returns HTTPClient when set. Otherwise it builds one from the
// current Timeout and RootCAs, so changes to either apply to the next call.
func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{
		Timeout: c.Timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{RootCAs: c.RootCAs, MinVersion: tls.VersionTLS12},
		},
	}
}

func (c *Client) do(ctx context.Context, endpoint string, body any, out any) error {
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return &UnreachableError{Addr: req.URL.Host, Err: err}
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b), RequestID: requestID}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

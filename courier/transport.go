package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/flowtide/chatcourier/eventstream"
)

// WireRequest is one fully prepared outbound request.
type WireRequest struct {
	URL      string
	Body     []byte
	Provider string
}

// Transport executes prepared requests. It is an injectable collaborator:
// retry policy, authentication, and cancellation are its responsibility, not
// the adapter layer's.
type Transport interface {
	// Complete executes a non-streaming call and returns the raw JSON
	// response body.
	Complete(ctx context.Context, req *WireRequest) (json.RawMessage, error)

	// Stream executes a streaming call. The returned channel yields one
	// ChunkResult per server-sent event and closes when the stream ends.
	Stream(ctx context.Context, req *WireRequest) (<-chan ChunkResult, error)
}

const (
	maxErrorBodyBytes    = 2 << 20
	maxResponseBodyBytes = 16 << 20
)

// HTTPTransport is the production Transport. It obtains a bearer token from
// the provider once per outbound request, posts JSON, and translates non-2xx
// responses into structured errors.
type HTTPTransport struct {
	client *http.Client
	token  TokenProvider
	retry  *RetryPolicy
	header http.Header
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) { t.client = client }
}

// WithRetryPolicy enables retries for retryable failures.
func WithRetryPolicy(policy RetryPolicy) HTTPTransportOption {
	return func(t *HTTPTransport) { t.retry = &policy }
}

// WithHeader adds a header to every outbound request.
func WithHeader(key, value string) HTTPTransportOption {
	return func(t *HTTPTransport) { t.header.Set(key, value) }
}

// NewHTTPTransport creates an HTTPTransport using the given token provider.
func NewHTTPTransport(token TokenProvider, opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		client: &http.Client{Timeout: 5 * time.Minute},
		token:  token,
		header: make(http.Header),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Complete implements Transport.
func (t *HTTPTransport) Complete(ctx context.Context, req *WireRequest) (json.RawMessage, error) {
	if t.retry != nil {
		return Retry(ctx, *t.retry, func(ctx context.Context) (json.RawMessage, error) {
			return t.complete(ctx, req)
		})
	}
	return t.complete(ctx, req)
}

func (t *HTTPTransport) complete(ctx context.Context, req *WireRequest) (json.RawMessage, error) {
	resp, err := t.send(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Stream implements Transport. Each server-sent event becomes one
// ChunkResult; the [DONE] sentinel terminates the stream.
func (t *HTTPTransport) Stream(ctx context.Context, req *WireRequest) (<-chan ChunkResult, error) {
	resp, err := t.send(ctx, req, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan ChunkResult, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		reader := eventstream.NewReader(resp.Body)
		for {
			event, err := reader.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case ch <- ChunkResult{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if event.Data == "[DONE]" {
				return
			}
			select {
			case ch <- ChunkResult{Data: []byte(event.Data)}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// send issues one HTTP request. Token provider failures propagate unwrapped;
// non-2xx responses translate through HandleFailedResponse.
func (t *HTTPTransport) send(ctx context.Context, req *WireRequest, stream bool) (*http.Response, error) {
	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	for key, values := range t.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, HandleFailedResponse(resp.StatusCode, body, req.Provider, retryAfterSeconds(resp.Header))
	}
	return resp, nil
}

func retryAfterSeconds(header http.Header) *float64 {
	raw := header.Get("Retry-After")
	if raw == "" {
		return nil
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &seconds
}

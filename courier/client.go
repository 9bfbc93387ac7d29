package courier

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// TokenProvider returns a bearer token for one outbound request. It is an
// opaque collaborator: token acquisition, caching, and refresh live behind it,
// and its failures propagate unwrapped.
type TokenProvider func(ctx context.Context) (string, error)

// URLBuilder returns the full request URL for a model. The client only
// consumes the result; it never constructs URLs itself.
type URLBuilder func(modelID string) string

// IDGenerator mints ids for tool calls whose wire chunks arrive without one.
type IDGenerator func() string

// SharedEndpoint builds a URLBuilder for the shared deployment topology: one
// endpoint serves every model and the model id travels in the request body.
func SharedEndpoint(baseURL string) URLBuilder {
	base := strings.TrimRight(baseURL, "/")
	return func(string) string {
		return base + "/chat/completions"
	}
}

// DeploymentEndpoint builds a URLBuilder for the per-deployment topology: the
// model id is encoded in the URL path and omitted from the body.
func DeploymentEndpoint(baseURL, apiVersion string) URLBuilder {
	base := strings.TrimRight(baseURL, "/")
	return func(modelID string) string {
		url := base + "/deployments/" + modelID + "/chat/completions"
		if apiVersion != "" {
			url += "?api-version=" + apiVersion
		}
		return url
	}
}

// Client is the call-shaped entry point. It resolves an adapter family per
// request, builds the wire body, and hands transport to the injected
// collaborator. A Client holds no per-call state and is safe for concurrent
// use; every streaming call owns a fresh accumulator.
type Client struct {
	provider      string
	transport     Transport
	urlFor        URLBuilder
	modelInBody   bool
	defaultFamily AdapterFamily
	modelSettings map[string]ModelSettings
	newID         IDGenerator
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport injects the fetch-like transport collaborator.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

// WithSharedEndpoint configures the shared topology against baseURL.
func WithSharedEndpoint(baseURL string) ClientOption {
	return func(c *Client) {
		c.urlFor = SharedEndpoint(baseURL)
		c.modelInBody = true
	}
}

// WithDeploymentEndpoint configures the per-deployment topology against
// baseURL.
func WithDeploymentEndpoint(baseURL, apiVersion string) ClientOption {
	return func(c *Client) {
		c.urlFor = DeploymentEndpoint(baseURL, apiVersion)
		c.modelInBody = false
	}
}

// WithURLBuilder injects a custom URLBuilder. modelInBody controls whether
// the resolved model id is also included in the request body.
func WithURLBuilder(b URLBuilder, modelInBody bool) ClientOption {
	return func(c *Client) {
		c.urlFor = b
		c.modelInBody = modelInBody
	}
}

// WithDefaultFamily sets the family used when a model id matches no inference
// pattern.
func WithDefaultFamily(family AdapterFamily) ClientOption {
	return func(c *Client) { c.defaultFamily = family }
}

// WithModelSettings registers per-model default settings.
func WithModelSettings(modelID string, settings ModelSettings) ClientOption {
	return func(c *Client) { c.modelSettings[modelID] = settings }
}

// WithIDGenerator injects the id generator used for streamed tool calls that
// arrive without a wire-supplied id.
func WithIDGenerator(gen IDGenerator) ClientOption {
	return func(c *Client) { c.newID = gen }
}

// WithProviderName sets the provider label carried on errors.
func WithProviderName(name string) ClientOption {
	return func(c *Client) { c.provider = name }
}

// NewClient creates a Client. Missing required configuration fails here,
// synchronously, never at request time.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		provider:      "courier",
		modelSettings: make(map[string]ModelSettings),
		newID: func() string {
			return "call_" + uuid.New().String()[:8]
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.urlFor == nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no endpoint configured: use WithSharedEndpoint, WithDeploymentEndpoint, or WithURLBuilder",
		}}
	}
	if c.transport == nil {
		return nil, &ConfigurationError{SDKError: SDKError{
			Message: "no transport configured: use WithTransport",
		}}
	}
	return c, nil
}

// prepare resolves the family and builds the wire request for one call.
func (c *Client) prepare(req Request, stream bool) (*WireRequest, []Warning, error) {
	family, err := resolveFamily(req.Model, req.Family, c.defaultFamily)
	if err != nil {
		return nil, nil, err
	}

	body, warnings := buildRequestBody(req, req.Model, c.modelInBody, stream, c.modelSettings[req.Model], policyFor(family))

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, nil, &SDKError{Message: "failed to encode request body", Cause: err}
	}

	return &WireRequest{
		URL:      c.urlFor(req.Model),
		Body:     encoded,
		Provider: c.provider,
	}, warnings, nil
}

// Complete sends a blocking request and returns the normalized result.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	wireReq, warnings, err := c.prepare(req, false)
	if err != nil {
		return nil, err
	}

	raw, err := c.transport.Complete(ctx, wireReq)
	if err != nil {
		return nil, err
	}

	body, err := decodeResponse(raw)
	if err != nil {
		return nil, err
	}

	resp := parseResponse(body)
	if err := validateToolCallIDs(resp); err != nil {
		return nil, err
	}
	resp.Warnings = warnings
	return resp, nil
}

// Stream sends a streaming request and returns a single-read, ordered channel
// of normalized events. The channel closes after the terminal finish event or
// once ctx is cancelled; cancellation itself is the transport's concern and
// the abort signal passes through unmodified.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	wireReq, _, err := c.prepare(req, true)
	if err != nil {
		return nil, err
	}

	chunks, err := c.transport.Stream(ctx, wireReq)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamEvent, 64)
	go func() {
		defer close(out)
		state := newStreamState(c.newID)

		// Chunks are processed strictly in arrival order; no chunk's
		// processing interleaves with another's.
		for res := range chunks {
			for _, event := range state.parseChunk(res) {
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}

		for _, event := range state.flush() {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Supports probes a capability. Embeddings and image generation are
// unsupported by this SDK and fail with a typed error at the probe point
// rather than after an attempted call.
func (c *Client) Supports(capability Capability) error {
	switch capability {
	case CapabilityChat:
		return nil
	default:
		return &UnsupportedCapabilityError{
			SDKError: SDKError{
				Message: "no such model or capability: " + string(capability),
			},
			Capability: capability,
		}
	}
}

// Package courier is an adapter layer that lets a generic chat-completion
// client speak to multiple wire-incompatible backend chat APIs through a
// single uniform facade.
//
// # Architecture
//
// The package follows a three-layer architecture:
//
//   - Layer 1 (Wire adapters): per-family request builders, response parsers,
//     and stream chunk parsers sharing one body builder parameterized by a
//     small family policy
//   - Layer 2 (Core client): Client with family resolution, injectable
//     transport, token provider, and URL builder collaborators
//   - Layer 3 (High-level API): Generate, StreamGenerate, StreamAccumulator
//
// # Quick Start
//
//	transport := courier.NewHTTPTransport(tokenProvider)
//	client, err := courier.NewClient(
//	    courier.WithSharedEndpoint("https://api.example.com/v1"),
//	    courier.WithTransport(transport),
//	)
//
//	resp, err := client.Complete(ctx, courier.Request{
//	    Model:    "gpt-4o",
//	    Messages: []courier.Message{courier.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # Adapter Families
//
// Each request is governed by an adapter family, selected per call by an
// explicit override or by pattern-matching the model id. The chat family
// speaks the modern dialect (max_completion_tokens, explicit zero sampling
// values suppressed); the legacy family speaks the older dialect (max_tokens,
// literal zeros forwarded). The claude family is a placeholder that fails
// fast when requested.
//
// # Streaming
//
// Stream returns an ordered, single-read channel of StreamEvent values. Text
// spans and tool-call argument strings may arrive split across many network
// frames and interleaved with one another; a per-call accumulator
// reconstructs every span so that concatenating all deltas for an id yields
// exactly the content carried on that id's terminal event.
//
//	events, err := client.Stream(ctx, req)
//	for event := range events {
//	    switch event.Type {
//	    case courier.TextDelta:
//	        fmt.Print(event.Delta)
//	    case courier.ToolCallEvent:
//	        fmt.Println(event.ToolCall.Name, event.ToolCall.Arguments)
//	    }
//	}
//
// # Collaborators
//
// Token acquisition, HTTP transport, and retry policy are injectable
// collaborators: a TokenProvider supplies a bearer token per request, a
// Transport executes prepared requests, and a URLBuilder maps a model id to
// its request URL for either deployment topology. HTTPTransport is the
// production Transport; tests substitute their own.
package courier

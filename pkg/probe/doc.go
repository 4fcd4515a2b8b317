// Package probe executes synthesized GraphQL requests against an endpoint and
// classifies the responses.
//
// An Executor runs one task per Request on a bounded worker pool. The number of
// HTTP calls in flight at once is capped separately by an admission gate that is
// held only for the duration of a single call, so retry backoff never occupies a
// slot. Transport failures are retried with a fixed backoff; any HTTP response is
// final. Every request yields exactly one Result, including when the context is
// cancelled.
//
//	exec := probe.NewExecutor(client, probe.Config{Concurrency: 5, MaxRetries: 3})
//	results := exec.Execute(ctx, "https://api.example.com/graphql", requests)
package probe

/*
Package tee talks to the dstack guest agent that runs next to the sandbox
inside a confidential VM.

The agent serves a small JSON RPC API over a unix socket. Every call is a POST
to /<Method> with a JSON body; byte fields travel hex encoded.

	client := tee.NewClient(tee.Options{Endpoint: "/var/run/dstack.sock"})
	quote, err := client.GetQuote(ctx, reportData)

Calls go through a retrying transport (go-retryablehttp) under resty and a
circuit breaker, so a missing agent fails fast after a few attempts.
*/
package tee

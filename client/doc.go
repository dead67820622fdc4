// Package client provides the one-shot HTTP GET primitive used by the
// seekable stream engine, built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithConnectTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// [Client.Get] sends a GET request with the given headers and answers
// HTTP Basic authentication challenges on its own:
//
//	header := http.Header{"Range": {"bytes=0-"}}
//	creds := client.Credentials{Username: "u", Password: "p"}
//	resp, challenge, err := c.Get(ctx, u, header, creds)
//
// At most [MaxAuthAttempts] requests are sent for one call. When the server
// keeps rejecting the credentials, the final 401 response is returned to the
// caller unchanged. The returned [Challenge] tells the caller whether the
// server asked for credentials at all, so later requests can send them up
// front.
//
// # Throttling
//
// [WithThrottle] wraps the transport with the token-bucket limiter from the
// [github.com/adamwoolhether/httpseek/client/throttle] package.
package client

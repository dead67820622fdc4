// Package throttle provides an [http.RoundTripper] that holds range
// requests back with a token bucket from [golang.org/x/time/rate].
//
// A seekable stream may reconnect many times while its reader jumps around
// a resource. [Reconnects] spends tokens only on those resuming requests,
// leaving each stream's opening "bytes=0-" request untouched; [All]
// throttles everything:
//
//	rt, err := throttle.New(throttle.Config{
//		RPS:   10,
//		Burst: 5,
//		Scope: throttle.Reconnects,
//	}, slog.Default(), http.DefaultTransport)
//	httpClient := &http.Client{Transport: rt}
//
// A throttled request blocks until a token is available or its context
// ends.
package throttle

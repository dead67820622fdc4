package client

import (
	"encoding/base64"
	"net/http"
)

// MaxAuthAttempts is the most requests [Client.Get] sends for a single call
// while answering Basic authentication challenges.
const MaxAuthAttempts = 4

// Credentials are sent using HTTP Basic authentication.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no username and no password are set.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// Basic returns the Authorization header value for c.
func (c Credentials) Basic() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.Username+":"+c.Password))
}

// Challenge is the authentication state change produced by one call to
// [Client.Get]. Callers fold it into their own state instead of the client
// mutating anything on their behalf.
type Challenge struct {
	// Required is true when the server answered 401 at least once.
	Required bool
	// Attempts counts the requests sent, including the first one.
	Attempts int
}

// authenticate builds the retry for a request rejected with 401. It returns
// nil once attempts reaches MaxAuthAttempts or when there is nothing to send.
func authenticate(req *http.Request, attempts int, creds Credentials) *http.Request {
	if attempts >= MaxAuthAttempts || creds.IsZero() {
		return nil
	}

	retry := req.Clone(req.Context())
	retry.Header.Set("Authorization", creds.Basic())

	return retry
}

package testutl

import "net/http"

// APIToken is the static API token test servers are configured with.
const APIToken = "testtoken"

// Authorize sets the bearer header for APIToken on req and returns it.
func Authorize(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+APIToken)
	return req
}

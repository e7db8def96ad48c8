// Package model defines shared types for the proxy, the session and the
// backend REST resources.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest is one inbound request on its way to the upstream. It lives
// only for the duration of a single forwarded exchange.
type ProxyRequest struct {
	Ctx           context.Context
	Method        string
	Path          string
	RawPath       string // escaped form of Path as received; "" means Path needs no escaping
	RawQuery      string
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64 // -1 when unknown
}

// ProxyResponse is the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

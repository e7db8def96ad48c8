// Package service implements the core proxy forwarding logic.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"taskboard-go/internal/client"
	"taskboard-go/internal/config"
	"taskboard-go/internal/model"
)

// ErrOutsidePrefix is returned for a path that is not under the forwarding prefix.
var ErrOutsidePrefix = errors.New("path is outside the proxied prefix")

// hopByHopHeaders apply to a single connection and are never forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"TE",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ProxyService forwards requests under one path prefix to one upstream origin.
type ProxyService struct {
	client  *client.UpstreamClient
	logger  *slog.Logger
	baseURL *url.URL
	origin  string
	prefix  string
}

// NewProxyService creates a ProxyService for cfg.Upstream.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q must be an absolute URL", cfg.Upstream.BaseURL)
	}

	prefix := cfg.Upstream.PathPrefix
	if prefix == "" {
		prefix = config.DefaultPathPrefix
	}

	return &ProxyService{
		client:  c,
		logger:  logger.With("component", "proxy_service"),
		baseURL: u,
		origin:  u.Scheme + "://" + u.Host,
		prefix:  prefix,
	}, nil
}

// Target returns the upstream base URL requests are forwarded to.
func (s *ProxyService) Target() string {
	return s.baseURL.String()
}

// Matches reports whether path is the forwarding prefix or below it.
func (s *ProxyService) Matches(path string) bool {
	return path == s.prefix || strings.HasPrefix(path, s.prefix+"/")
}

// Forward replays pr against the upstream and returns its response.
// The caller is responsible for closing the response body.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	if !s.Matches(pr.Path) {
		return nil, fmt.Errorf("%w: %s", ErrOutsidePrefix, pr.Path)
	}

	upstreamURL := s.buildUpstreamURL(pr.Path, pr.RawPath, pr.RawQuery)
	header := s.filterRequestHeaders(pr.Header)

	s.logger.Info("proxying request",
		"method", pr.Method,
		"path", pr.Path,
		"target", upstreamURL,
	)

	resp, err := s.client.DoStream(pr.Ctx, pr.Method, upstreamURL, header, pr.Body, pr.ContentLength)
	if err != nil {
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	s.logger.Info("upstream response",
		"status", resp.StatusCode,
		"method", pr.Method,
		"path", pr.Path,
	)

	resp.Header = s.filterResponseHeaders(resp.Header)
	return resp, nil
}

// buildUpstreamURL joins the upstream base path with the full inbound path.
// rawPath, when set, is the path as the client encoded it, so octets like
// %2F reach the upstream unchanged. The query string is kept verbatim.
func (s *ProxyService) buildUpstreamURL(path, rawPath, rawQuery string) string {
	u := *s.baseURL
	basePath := strings.TrimRight(u.Path, "/")
	baseRaw := strings.TrimRight(u.EscapedPath(), "/")
	u.Path = basePath + path
	u.RawPath = ""
	if rawPath != "" {
		u.RawPath = baseRaw + rawPath
	}
	u.RawQuery = rawQuery
	return u.String()
}

// filterRequestHeaders copies src minus hop-by-hop headers and rewrites
// Origin to the upstream origin. Host comes from the upstream URL.
func (s *ProxyService) filterRequestHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		dst = make(http.Header)
	}
	removeHopByHop(dst)
	dst.Del("Host")
	if dst.Get("Origin") != "" {
		dst.Set("Origin", s.origin)
	}
	return dst
}

// filterResponseHeaders copies src minus hop-by-hop headers and the
// upstream's own CORS headers; the proxy answers CORS itself.
func (s *ProxyService) filterResponseHeaders(src http.Header) http.Header {
	dst := src.Clone()
	if dst == nil {
		return make(http.Header)
	}
	removeHopByHop(dst)
	for key := range dst {
		if strings.HasPrefix(http.CanonicalHeaderKey(key), "Access-Control-") {
			delete(dst, key)
		}
	}
	return dst
}

// removeHopByHop deletes the standard hop-by-hop headers and any header
// named in Connection.
func removeHopByHop(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

package httpclient

import (
	"context"
	"net/http"

	"github.com/samvad-hq/samvad-envelope/pkg/stream"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// Request describes a single outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Do(ctx context.Context, req Request) (Response, error)
}

// Downloader streams a response body while reporting progress.
type Downloader interface {
	Download(ctx context.Context, url string, headers map[string]string) stream.Stream[ProgressResponse]
}

// ProgressResponse is one element of a download: either an in-flight fraction or,
// once Response is set, the completed response.
type ProgressResponse struct {
	Progress float64
	Response Response
}

// Completed reports whether the element carries the final response.
func (p ProgressResponse) Completed() bool { return p.Response != nil }

// NewResponse builds an in-memory Response.
func NewResponse(statusCode int, body []byte, header http.Header) Response {
	if header == nil {
		header = http.Header{}
	}
	return &staticResponse{status: statusCode, body: body, header: header}
}

type staticResponse struct {
	status int
	body   []byte
	header http.Header
}

func (s *staticResponse) Body() []byte        { return s.body }
func (s *staticResponse) StatusCode() int     { return s.status }
func (s *staticResponse) Header() http.Header { return s.header }

package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-envelope/pkg/stream"
)

const downloadChunkBytes = 32 << 10

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

var (
	_ Client     = (*RestyClient)(nil)
	_ Downloader = (*RestyClient)(nil)
)

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(timeout)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Get performs an HTTP GET request with the specified context, URL, and headers.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	return r.Do(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers})
}

// Do executes req. Non-2xx statuses are returned as responses, not errors.
func (r *RestyClient) Do(ctx context.Context, req Request) (Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	rr := r.client.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		rr.SetHeaders(req.Headers)
	}
	if req.Body != nil {
		rr.SetBody(req.Body)
	}

	resp, err := rr.Execute(method, req.URL)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// Download performs a GET and yields progress elements followed by one completed element.
// Transport failures terminate the stream with the error.
func (r *RestyClient) Download(ctx context.Context, url string, headers map[string]string) stream.Stream[ProgressResponse] {
	return func(yield func(ProgressResponse, error) bool) {
		rr := r.client.R().SetContext(ctx).SetDoNotParseResponse(true)
		if len(headers) > 0 {
			rr.SetHeaders(headers)
		}
		resp, err := rr.Get(url)
		if err != nil {
			yield(ProgressResponse{}, err)
			return
		}

		raw := resp.RawBody()
		if raw == nil {
			yield(ProgressResponse{Progress: 1, Response: NewResponse(resp.StatusCode(), nil, resp.Header())}, nil)
			return
		}
		defer raw.Close()

		var total int64 = -1
		if resp.RawResponse != nil {
			total = resp.RawResponse.ContentLength
		}

		var buf bytes.Buffer
		chunk := make([]byte, downloadChunkBytes)
		for {
			n, readErr := raw.Read(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
				if !yield(ProgressResponse{Progress: fraction(int64(buf.Len()), total)}, nil) {
					return
				}
			}
			if errors.Is(readErr, io.EOF) {
				break
			}
			if readErr != nil {
				yield(ProgressResponse{}, fmt.Errorf("read body: %w", readErr))
				return
			}
		}

		yield(ProgressResponse{
			Progress: 1,
			Response: NewResponse(resp.StatusCode(), buf.Bytes(), resp.Header()),
		}, nil)
	}
}

// fraction returns read/total clamped to [0,1); unknown totals report 0.
func fraction(read, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(read) / float64(total)
	if f >= 1 {
		// the completed element is the only one reporting 1
		return 0.999
	}
	return f
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }

// Package rx lifts the response package operations onto response streams.
// Each operator applies its operation per element and terminates the stream on the
// first failure.
package rx

import (
	"context"
	"image"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/response"
	"github.com/samvad-hq/samvad-envelope/pkg/stream"
)

// Responses is a stream of HTTP responses.
type Responses = stream.Stream[httpclient.Response]

// FilterStatusCodes fails the stream on the first response outside [lo, hi].
func FilterStatusCodes(src Responses, lo, hi int) Responses {
	return stream.TryMap(src, func(r httpclient.Response) (httpclient.Response, error) {
		return response.FilterStatusCodes(r, lo, hi)
	})
}

// FilterStatusCode fails the stream on the first response whose status is not code.
func FilterStatusCode(src Responses, code int) Responses {
	return stream.TryMap(src, func(r httpclient.Response) (httpclient.Response, error) {
		return response.FilterStatusCode(r, code)
	})
}

// FilterSuccessfulStatusCodes accepts 200-299.
func FilterSuccessfulStatusCodes(src Responses) Responses {
	return stream.TryMap(src, response.FilterSuccessfulStatusCodes)
}

// FilterSuccessfulStatusAndRedirectCodes accepts 200-399.
func FilterSuccessfulStatusAndRedirectCodes(src Responses) Responses {
	return stream.TryMap(src, response.FilterSuccessfulStatusAndRedirectCodes)
}

func MapImage(src Responses) stream.Stream[image.Image] {
	return stream.TryMap(src, response.MapImage)
}

func MapJSON(src Responses, failsOnEmptyData bool) stream.Stream[any] {
	return stream.TryMap(src, func(r httpclient.Response) (any, error) {
		return response.MapJSON(r, failsOnEmptyData)
	})
}

func MapString(src Responses, keyPath string) stream.Stream[string] {
	return stream.TryMap(src, func(r httpclient.Response) (string, error) {
		return response.MapString(r, keyPath)
	})
}

func MapDocument(src Responses) stream.Stream[*goquery.Document] {
	return stream.TryMap(src, response.MapDocument)
}

// Map decodes each response (at keyPath, or the whole body) into a T.
func Map[T any](src Responses, keyPath string, failsOnEmptyData bool) stream.Stream[T] {
	return stream.TryMap(src, func(r httpclient.Response) (T, error) {
		var out T
		err := response.MapInto(r, keyPath, &out, failsOnEmptyData)
		return out, err
	})
}

// FilterCompleted yields the response of each completed progress element.
func FilterCompleted(src stream.Stream[httpclient.ProgressResponse]) Responses {
	completed := stream.Filter(src, func(p httpclient.ProgressResponse) bool { return p.Completed() })
	return stream.Map(completed, func(p httpclient.ProgressResponse) httpclient.Response { return p.Response })
}

// FilterProgress yields the completion fraction of each in-flight element.
func FilterProgress(src stream.Stream[httpclient.ProgressResponse]) stream.Stream[float64] {
	inFlight := stream.Filter(src, func(p httpclient.ProgressResponse) bool { return !p.Completed() })
	return stream.Map(inFlight, func(p httpclient.ProgressResponse) float64 { return p.Progress })
}

// SplitProgress derives the progress and completed views from a single pass over src.
// Either view may be consumed first; the other replays the shared elements.
func SplitProgress(src stream.Stream[httpclient.ProgressResponse]) (stream.Stream[float64], Responses) {
	shared := stream.Share(src)
	return FilterProgress(shared), FilterCompleted(shared)
}

// Download starts one download through d and splits it with SplitProgress.
func Download(ctx context.Context, d httpclient.Downloader, url string, headers map[string]string) (stream.Stream[float64], Responses) {
	return SplitProgress(d.Download(ctx, url, headers))
}

package rx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/response"
	"github.com/samvad-hq/samvad-envelope/pkg/stream"
)

func responses(codes ...int) Responses {
	out := make([]httpclient.Response, 0, len(codes))
	for _, c := range codes {
		out = append(out, httpclient.NewResponse(c, []byte(`{"code":0,"data":{"n":1}}`), nil))
	}
	return stream.FromSlice(out)
}

func TestFilterSuccessfulStatusCodesTerminatesOnFailure(t *testing.T) {
	got, err := stream.Collect(FilterSuccessfulStatusCodes(responses(200, 201, 500, 200)))
	if len(got) != 2 {
		t.Fatalf("expected 2 responses before failure, got %d", len(got))
	}
	var re *response.Error
	if !errors.As(err, &re) || re.Response.StatusCode() != 500 {
		t.Fatalf("expected status error for 500, got %v", err)
	}
}

func TestFilterStatusCodePassesMatching(t *testing.T) {
	got, err := stream.Collect(FilterStatusCode(responses(204, 204), 204))
	if err != nil || len(got) != 2 {
		t.Fatalf("got=%d err=%v", len(got), err)
	}
}

func TestMapDecodesAtKeyPath(t *testing.T) {
	type payload struct {
		N int `json:"n"`
	}
	got, err := stream.Collect(Map[payload](responses(200), "data", true))
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(got) != 1 || got[0].N != 1 {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestMapStringPropagatesUpstreamError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := stream.Collect(MapString(stream.Fail[httpclient.Response](boom), ""))
	if !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func countedProgress(pulls *int, final httpclient.Response) stream.Stream[httpclient.ProgressResponse] {
	return func(yield func(httpclient.ProgressResponse, error) bool) {
		for _, p := range []httpclient.ProgressResponse{
			{Progress: 0.25},
			{Progress: 0.5},
			{Progress: 1, Response: final},
		} {
			*pulls++
			if !yield(p, nil) {
				return
			}
		}
	}
}

func TestProgressSplitDerivesFromOneSource(t *testing.T) {
	final := httpclient.NewResponse(200, []byte("done"), nil)
	pulls := 0
	progressView, completedView := SplitProgress(countedProgress(&pulls, final))

	progress, err := stream.Collect(progressView)
	if err != nil {
		t.Fatalf("progress view: %v", err)
	}
	if len(progress) != 2 || progress[0] != 0.25 || progress[1] != 0.5 {
		t.Fatalf("unexpected progress %v", progress)
	}

	completed, err := stream.Collect(completedView)
	if err != nil {
		t.Fatalf("completed view: %v", err)
	}
	if len(completed) != 1 || string(completed[0].Body()) != "done" {
		t.Fatalf("unexpected completed %v", completed)
	}
	if pulls != 3 {
		t.Fatalf("expected a single pass over the source, pulls=%d", pulls)
	}
}

func TestProgressSplitCompletedFirst(t *testing.T) {
	pulls := 0
	progressView, completedView := SplitProgress(countedProgress(&pulls, httpclient.NewResponse(200, nil, nil)))

	if completed, err := stream.Collect(completedView); err != nil || len(completed) != 1 {
		t.Fatalf("completed view: %v %v", completed, err)
	}
	if progress, err := stream.Collect(progressView); err != nil || len(progress) != 2 {
		t.Fatalf("progress view: %v %v", progress, err)
	}
	if pulls != 3 {
		t.Fatalf("expected a single pass over the source, pulls=%d", pulls)
	}
}

func TestProgressSplitSharesTerminalError(t *testing.T) {
	boom := errors.New("reset by peer")
	pulls := 0
	var src stream.Stream[httpclient.ProgressResponse] = func(yield func(httpclient.ProgressResponse, error) bool) {
		pulls++
		if !yield(httpclient.ProgressResponse{Progress: 0.1}, nil) {
			return
		}
		pulls++
		yield(httpclient.ProgressResponse{}, boom)
	}
	progressView, completedView := SplitProgress(src)

	if _, err := stream.Collect(progressView); !errors.Is(err, boom) {
		t.Fatalf("progress view: expected %v, got %v", boom, err)
	}
	if _, err := stream.Collect(completedView); !errors.Is(err, boom) {
		t.Fatalf("completed view: expected %v, got %v", boom, err)
	}
	if pulls != 2 {
		t.Fatalf("expected a single pass over the source, pulls=%d", pulls)
	}
}

func TestDownloadIssuesOneRequestForBothViews(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	progressView, completedView := Download(context.Background(), httpclient.NewRestyClient(5*time.Second), srv.URL, nil)
	if _, err := stream.Collect(progressView); err != nil {
		t.Fatalf("progress view: %v", err)
	}
	completed, err := stream.Collect(completedView)
	if err != nil {
		t.Fatalf("completed view: %v", err)
	}
	if len(completed) != 1 || string(completed[0].Body()) != `{"ok":true}` {
		t.Fatalf("unexpected completed %v", completed)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one request, got %d", got)
	}
}

package envelope

import (
	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/stream"
)

// Results maps every response into a Result. An upstream error becomes a final
// transport failure element, so consumers never see a raw stream error.
func Results[T any](src stream.Stream[httpclient.Response], m *Mapper) stream.Stream[Result[T]] {
	mapped := stream.Map(src, func(r httpclient.Response) Result[T] { return Map[T](m, r) })
	return stream.Catch(mapped, func(err error) Result[T] {
		return record(m, upstreamFailure[T](m, err))
	})
}

// Successes is Results for envelopes without a payload.
func Successes(src stream.Stream[httpclient.Response], m *Mapper) stream.Stream[Result[struct{}]] {
	mapped := stream.Map(src, m.MapSuccess)
	return stream.Catch(mapped, func(err error) Result[struct{}] {
		return record(m, upstreamFailure[struct{}](m, err))
	})
}

// Values yields decoded payloads and terminates with an *Error on the first
// non-success envelope or upstream error. Classification matches Results.
func Values[T any](src stream.Stream[httpclient.Response], m *Mapper) stream.Stream[T] {
	return raise(Results[T](src, m))
}

// Completions is Values for envelopes without a payload.
func Completions(src stream.Stream[httpclient.Response], m *Mapper) stream.Stream[struct{}] {
	return raise(Successes(src, m))
}

func raise[T any](results stream.Stream[Result[T]]) stream.Stream[T] {
	return stream.TryMap(results, Result[T].Get)
}

func upstreamFailure[T any](m *Mapper, err error) Result[T] {
	m.log.WarnObj("response stream failed", "envelope_stream_error", map[string]any{
		"profile": m.name,
		"error":   err.Error(),
	})
	return TransportFailure[T](err.Error(), err)
}

package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-envelope/internal/logger"
	"github.com/samvad-hq/samvad-envelope/pkg/envelope"
	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/metrics"
	"github.com/samvad-hq/samvad-envelope/pkg/response/rx"
	"github.com/samvad-hq/samvad-envelope/pkg/stream"
)

// Responses with a status at or above this are transport failures, whatever the body says.
const serverErrorStatus = 500

// Outcome is the classified result of checking one target.
type Outcome struct {
	TargetID     string        `json:"target_id"`
	Profile      string        `json:"profile"`
	Kind         string        `json:"kind"`
	StatusCode   int           `json:"status_code,omitempty"`
	Code         int           `json:"code,omitempty"`
	Message      string        `json:"message,omitempty"`
	PayloadBytes int           `json:"payload_bytes,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Service checks targets by running their responses through the envelope mappers.
type Service struct {
	client  httpclient.Client
	mappers map[string]*envelope.Mapper
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	mapperOpts []envelope.Option
	metrics    *metrics.Metrics
}

// WithMapperOptions are applied to every profile's mapper.
func WithMapperOptions(opts ...envelope.Option) ServiceOption {
	return func(o *serviceOptions) { o.mapperOpts = append(o.mapperOpts, opts...) }
}

// WithMetrics records probe latencies and envelope outcomes on m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(o *serviceOptions) { o.metrics = m }
}

// NewService builds one mapper per profile.
func NewService(client httpclient.Client, profiles *envelope.Profiles, log logger.Logger, opts ...ServiceOption) (*Service, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if profiles == nil {
		return nil, errors.New("profiles must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	mapperOpts := o.mapperOpts
	if o.metrics != nil {
		mapperOpts = append(mapperOpts, envelope.WithObserver(o.metrics))
	}
	mapperOpts = append(mapperOpts, envelope.WithLogger(log))

	mappers := make(map[string]*envelope.Mapper)
	for _, name := range profiles.Names() {
		m, err := profiles.Mapper(name, mapperOpts...)
		if err != nil {
			return nil, fmt.Errorf("build mapper for profile %s: %w", name, err)
		}
		mappers[name] = m
	}

	return &Service{
		client:  client,
		mappers: mappers,
		metrics: o.metrics,
		log:     log,
		now:     time.Now,
	}, nil
}

// RunOnce checks every target in order. The returned error joins configuration
// errors only; envelope failures are reported through the outcomes.
func (s *Service) RunOnce(ctx context.Context, targets []Target) ([]Outcome, error) {
	if s == nil {
		return nil, fmt.Errorf("probe service is not initialized")
	}

	outcomes := make([]Outcome, 0, len(targets))
	var errs []error
	for _, t := range targets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		out, err := s.Check(ctx, t)
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("target check failed", "probe_error", map[string]any{
				"target_id": t.ID,
				"error":     err.Error(),
			})
			continue
		}
		s.logOutcome(out)
		outcomes = append(outcomes, out)
	}
	return outcomes, errors.Join(errs...)
}

// Check requests t once and classifies the response with the target's profile.
func (s *Service) Check(ctx context.Context, t Target) (Outcome, error) {
	mapper, ok := s.mappers[t.Profile]
	if !ok {
		return Outcome{}, fmt.Errorf("target %s: unknown profile %q", t.ID, t.Profile)
	}

	out := Outcome{TargetID: t.ID, Profile: t.Profile}
	start := s.now()

	src := stream.Do(s.fetch(ctx, t), func(resp httpclient.Response) {
		out.StatusCode = resp.StatusCode()
	})
	src = rx.FilterStatusCodes(src, 0, serverErrorStatus-1)

	switch t.Payload {
	case PayloadJSON:
		r, err := first(envelope.Results[json.RawMessage](src, mapper))
		if err != nil {
			return Outcome{}, fmt.Errorf("target %s: %w", t.ID, err)
		}
		if v, ok := r.Value(); ok {
			out.PayloadBytes = len(v)
		}
		fill(&out, r)
	default:
		r, err := first(envelope.Successes(src, mapper))
		if err != nil {
			return Outcome{}, fmt.Errorf("target %s: %w", t.ID, err)
		}
		fill(&out, r)
	}

	out.Elapsed = s.now().Sub(start)
	s.metrics.ObserveProbeDuration(t.ID, out.Elapsed)
	return out, nil
}

// fetch performs the request lazily, when the stream is first pulled.
func (s *Service) fetch(ctx context.Context, t Target) rx.Responses {
	return func(yield func(httpclient.Response, error) bool) {
		resp, err := s.client.Do(ctx, httpclient.Request{
			Method:  t.Method,
			URL:     t.URL,
			Headers: t.Headers,
		})
		if err != nil {
			yield(nil, fmt.Errorf("request %s: %w", t.URL, err))
			return
		}
		yield(resp, nil)
	}
}

func (s *Service) logOutcome(out Outcome) {
	switch out.Kind {
	case envelope.KindSuccess.String():
		s.log.InfoObj("target healthy", "probe_outcome", out)
	case envelope.KindServiceFailure.String():
		s.log.WarnObj("target reported service failure", "probe_outcome", out)
	default:
		s.log.ErrorObj("target unreachable or malformed", "probe_outcome", out)
	}
}

func first[T any](results stream.Stream[envelope.Result[T]]) (envelope.Result[T], error) {
	for r, err := range results {
		return r, err
	}
	return envelope.Result[T]{}, errors.New("no response")
}

func fill[T any](out *Outcome, r envelope.Result[T]) {
	out.Kind = r.Kind().String()
	out.Code = r.Code()
	out.Message = r.Message()
}

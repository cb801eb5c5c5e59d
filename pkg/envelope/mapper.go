package envelope

import (
	"fmt"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/keypath"
)

const (
	// UnauthorizedCode is the application code that triggers the unauthorized notification.
	UnauthorizedCode = 401

	// NoErrorMessage replaces a transport failure body that is not valid UTF-8.
	NoErrorMessage = "no error message"
)

// UnauthorizedEvent describes the envelope that carried the unauthorized code.
type UnauthorizedEvent struct {
	Profile    string
	StatusCode int
}

// UnauthorizedNotifier receives a fire-and-forget signal for every envelope whose code is 401.
type UnauthorizedNotifier interface {
	Unauthorized(evt UnauthorizedEvent)
}

// NotifierFunc adapts a function to UnauthorizedNotifier.
type NotifierFunc func(evt UnauthorizedEvent)

func (f NotifierFunc) Unauthorized(evt UnauthorizedEvent) { f(evt) }

// Observer is told about every classified envelope.
type Observer interface {
	ObserveResult(profile string, kind Kind)
	ObserveUnauthorized(profile string)
}

// Mapper classifies response envelopes according to a Config.
type Mapper struct {
	name     string
	cfg      Config
	decoder  keypath.Decoder
	notifier UnauthorizedNotifier
	observer Observer
	log      Logger
}

// Option customises a Mapper.
type Option func(*Mapper)

// WithName labels the mapper in logs, metrics and unauthorized events.
func WithName(name string) Option {
	return func(m *Mapper) { m.name = name }
}

func WithDecoder(dec keypath.Decoder) Option {
	return func(m *Mapper) {
		if dec != nil {
			m.decoder = dec
		}
	}
}

func WithNotifier(n UnauthorizedNotifier) Option {
	return func(m *Mapper) { m.notifier = n }
}

func WithObserver(o Observer) Option {
	return func(m *Mapper) { m.observer = o }
}

func WithLogger(log Logger) Option {
	return func(m *Mapper) {
		if log != nil {
			m.log = log
		}
	}
}

// New builds a Mapper for cfg.
func New(cfg Config, opts ...Option) (*Mapper, error) {
	cfg = cfg.sanitized()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("envelope config: %w", err)
	}
	m := &Mapper{
		name:    "default",
		cfg:     cfg,
		decoder: keypath.Default,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the mapper configuration.
func (m *Mapper) Config() Config { return m.cfg }

// Name returns the label given with WithName.
func (m *Mapper) Name() string { return m.name }

// Map classifies resp and decodes the payload at DataKey into a T.
func Map[T any](m *Mapper, resp httpclient.Response) Result[T] {
	code, failure, ok := m.classify(resp)
	if !ok {
		return record(m, Result[T]{kind: failure.Kind, err: failure})
	}

	var out T
	if err := m.decoder.Decode(resp.Body(), m.cfg.DataKey, &out); err != nil {
		m.log.WarnObj("envelope payload decode failed", "envelope_decode_error", map[string]any{
			"profile":  m.name,
			"code":     code,
			"data_key": m.cfg.DataKey,
			"error":    err.Error(),
		})
		return record(m, TransportFailure[T](
			fmt.Sprintf("request succeeded but payload decoding failed: %v", err), err))
	}
	return record(m, Success(out))
}

// MapSuccess classifies resp without decoding a payload.
func (m *Mapper) MapSuccess(resp httpclient.Response) Result[struct{}] {
	if _, failure, ok := m.classify(resp); !ok {
		return record(m, Result[struct{}]{kind: failure.Kind, err: failure})
	}
	return record(m, Success(struct{}{}))
}

// classify runs the steps shared by both mappings. ok is true only when the code equals
// the success code; otherwise failure describes the outcome.
func (m *Mapper) classify(resp httpclient.Response) (code int, failure *Error, ok bool) {
	body := resp.Body()

	code, err := m.decoder.Int(body, m.cfg.CodeKey)
	if err != nil {
		m.log.DebugObj("envelope code unreadable", "envelope_transport_failure", map[string]any{
			"profile":     m.name,
			"code_key":    m.cfg.CodeKey,
			"status_code": resp.StatusCode(),
			"error":       err.Error(),
		})
		return 0, &Error{Kind: KindTransportFailure, Message: bodyText(body), Cause: err}, false
	}

	if code == UnauthorizedCode {
		m.notifyUnauthorized(resp)
	}

	if code != m.cfg.SuccessCode {
		message := ""
		if m.cfg.MessageKey != "" {
			if s, err := m.decoder.String(body, m.cfg.MessageKey); err == nil {
				message = s
			}
		}
		return code, &Error{Kind: KindServiceFailure, Code: code, Message: message}, false
	}
	return code, nil, true
}

func (m *Mapper) notifyUnauthorized(resp httpclient.Response) {
	m.log.InfoObj("envelope reported unauthorized", "envelope_unauthorized", map[string]any{
		"profile":     m.name,
		"status_code": resp.StatusCode(),
	})
	if m.observer != nil {
		m.observer.ObserveUnauthorized(m.name)
	}
	if m.notifier != nil {
		m.notifier.Unauthorized(UnauthorizedEvent{Profile: m.name, StatusCode: resp.StatusCode()})
	}
}

// record reports the outcome to the observer and returns r unchanged.
func record[T any](m *Mapper, r Result[T]) Result[T] {
	if m.observer != nil {
		m.observer.ObserveResult(m.name, r.kind)
	}
	return r
}

func bodyText(body []byte) string {
	if !utf8.Valid(body) {
		return NoErrorMessage
	}
	return string(body)
}

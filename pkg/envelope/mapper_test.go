package envelope

import (
	"errors"
	"strings"
	"testing"

	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/keypath"
)

var testConfig = Config{
	DataKey:     "data",
	CodeKey:     "code",
	MessageKey:  "message",
	SuccessCode: 200,
}

type item struct {
	ID int `json:"id"`
}

// countingNotifier records unauthorized events.
type countingNotifier struct {
	events []UnauthorizedEvent
}

func (c *countingNotifier) Unauthorized(evt UnauthorizedEvent) {
	c.events = append(c.events, evt)
}

// recordingObserver tracks observed kinds.
type recordingObserver struct {
	kinds        []Kind
	unauthorized int
}

func (r *recordingObserver) ObserveResult(_ string, kind Kind) { r.kinds = append(r.kinds, kind) }
func (r *recordingObserver) ObserveUnauthorized(string)        { r.unauthorized++ }

func newTestMapper(t *testing.T, opts ...Option) *Mapper {
	t.Helper()
	m, err := New(testConfig, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func respond(body string) httpclient.Response {
	return httpclient.NewResponse(200, []byte(body), nil)
}

func TestMapSuccessDecodesPayload(t *testing.T) {
	m := newTestMapper(t)
	res := Map[item](m, respond(`{"code":200,"message":"ok","data":{"id":1}}`))

	v, ok := res.Value()
	if !ok {
		t.Fatalf("expected success, got %v", res)
	}
	if v.ID != 1 {
		t.Fatalf("expected id 1, got %d", v.ID)
	}
	if res.Err() != nil {
		t.Fatalf("success should have nil Err, got %v", res.Err())
	}
}

func TestMapServiceFailure(t *testing.T) {
	m := newTestMapper(t)
	res := Map[item](m, respond(`{"code":403,"message":"forbidden"}`))

	if res.Kind() != KindServiceFailure {
		t.Fatalf("expected service failure, got %v", res.Kind())
	}
	if res.Code() != 403 || res.Message() != "forbidden" {
		t.Fatalf("unexpected failure %d %q", res.Code(), res.Message())
	}
}

func TestMapServiceFailureMissingMessage(t *testing.T) {
	m := newTestMapper(t)
	for _, body := range []string{`{"code":500}`, `{"code":500,"message":{"text":"x"}}`} {
		res := Map[item](m, respond(body))
		if res.Kind() != KindServiceFailure || res.Message() != "" {
			t.Fatalf("%s: expected empty-message service failure, got %v", body, res)
		}
	}
}

func TestMapTransportFailureCarriesRawBody(t *testing.T) {
	m := newTestMapper(t)
	res := Map[item](m, respond(`not json`))

	if res.Kind() != KindTransportFailure {
		t.Fatalf("expected transport failure, got %v", res.Kind())
	}
	if res.Message() != "not json" {
		t.Fatalf("expected raw body message, got %q", res.Message())
	}
	if !errors.Is(res.Err(), keypath.ErrDecode) {
		t.Fatalf("expected decode cause, got %v", res.Err())
	}
}

func TestMapTransportFailureInvalidUTF8(t *testing.T) {
	m := newTestMapper(t)
	res := Map[item](m, httpclient.NewResponse(502, []byte{0xff, 0xfe, 0xfd}, nil))
	if res.Kind() != KindTransportFailure || res.Message() != NoErrorMessage {
		t.Fatalf("expected placeholder message, got %v", res)
	}
}

func TestMapPayloadDecodeFailure(t *testing.T) {
	m := newTestMapper(t)
	res := Map[item](m, respond(`{"code":200,"data":{"id":"one"}}`))

	if res.Kind() != KindTransportFailure {
		t.Fatalf("expected transport failure, got %v", res.Kind())
	}
	if !strings.HasPrefix(res.Message(), "request succeeded but payload decoding failed") {
		t.Fatalf("unexpected message %q", res.Message())
	}
	var de *keypath.DecodeError
	if !errors.As(res.Err(), &de) {
		t.Fatalf("expected decode error cause, got %v", res.Err())
	}
}

func TestMapPayloadMissingDataKey(t *testing.T) {
	m := newTestMapper(t)
	res := Map[item](m, respond(`{"code":200}`))
	if res.Kind() != KindTransportFailure {
		t.Fatalf("expected transport failure for missing data, got %v", res)
	}
}

func TestMapPayloadNullData(t *testing.T) {
	m := newTestMapper(t)
	res := Map[item](m, respond(`{"code":200,"data":null}`))
	if res.Kind() != KindTransportFailure {
		t.Fatalf("expected transport failure for null data, got %v", res)
	}
	ptr := Map[*item](m, respond(`{"code":200,"data":null}`))
	if ptr.Kind() != KindTransportFailure {
		t.Fatalf("expected transport failure for null data into a pointer, got %v", ptr)
	}
	if void := m.MapSuccess(respond(`{"code":200,"data":null}`)); void.Kind() != KindSuccess {
		t.Fatalf("void success must ignore data, got %v", void)
	}
}

func TestMapSuccessVoidIgnoresData(t *testing.T) {
	m := newTestMapper(t)
	if res := m.MapSuccess(respond(`{"code":200}`)); !res.IsSuccess() {
		t.Fatalf("expected void success, got %v", res)
	}
	if res := m.MapSuccess(respond(`{"code":404,"message":"gone"}`)); res.Code() != 404 || res.Message() != "gone" {
		t.Fatalf("expected service failure, got %v", res)
	}
	if res := m.MapSuccess(respond(`<html>`)); res.Kind() != KindTransportFailure {
		t.Fatalf("expected transport failure, got %v", res)
	}
}

func TestUnauthorizedFiresOnceRegardlessOfClassification(t *testing.T) {
	cases := []struct {
		name        string
		successCode int
		body        string
		want        Kind
	}{
		{"service failure", 200, `{"code":401,"message":"expired"}`, KindServiceFailure},
		{"success code 401", 401, `{"code":401,"data":{"id":3}}`, KindSuccess},
		{"success code 401 bad payload", 401, `{"code":401,"data":[]}`, KindTransportFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := &countingNotifier{}
			cfg := testConfig
			cfg.SuccessCode = tc.successCode
			m, err := New(cfg, WithNotifier(notifier), WithName("auth"))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			res := Map[item](m, httpclient.NewResponse(401, []byte(tc.body), nil))
			if res.Kind() != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, res)
			}
			if len(notifier.events) != 1 {
				t.Fatalf("expected exactly one notification, got %d", len(notifier.events))
			}
			if evt := notifier.events[0]; evt.Profile != "auth" || evt.StatusCode != 401 {
				t.Fatalf("unexpected event %+v", evt)
			}
		})
	}
}

func TestUnauthorizedExpiredExample(t *testing.T) {
	notifier := &countingNotifier{}
	m := newTestMapper(t, WithNotifier(notifier))
	res := m.MapSuccess(respond(`{"code":401,"message":"expired"}`))
	if res.Code() != 401 || res.Message() != "expired" {
		t.Fatalf("expected service failure 401, got %v", res)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.events))
	}
}

func TestNoNotificationForOtherCodesOrUnreadableBodies(t *testing.T) {
	notifier := &countingNotifier{}
	m := newTestMapper(t, WithNotifier(notifier))
	for _, body := range []string{`{"code":200,"data":{"id":1}}`, `{"code":403}`, `401`, `{"code":"401"}`} {
		Map[item](m, respond(body))
	}
	if len(notifier.events) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.events))
	}
}

func TestObserverSeesEveryOutcome(t *testing.T) {
	obs := &recordingObserver{}
	m := newTestMapper(t, WithObserver(obs))
	Map[item](m, respond(`{"code":200,"data":{"id":1}}`))
	Map[item](m, respond(`{"code":401}`))
	m.MapSuccess(respond(`nope`))

	want := []Kind{KindSuccess, KindServiceFailure, KindTransportFailure}
	if len(obs.kinds) != len(want) {
		t.Fatalf("expected %d observations, got %v", len(want), obs.kinds)
	}
	for i := range want {
		if obs.kinds[i] != want[i] {
			t.Fatalf("observation %d: want %v got %v", i, want[i], obs.kinds[i])
		}
	}
	if obs.unauthorized != 1 {
		t.Fatalf("expected 1 unauthorized observation, got %d", obs.unauthorized)
	}
}

// stubDecoder lets tests drive each extraction step independently.
type stubDecoder struct {
	code    int
	codeErr error
	message string
	msgErr  error
	decode  func(v any) error
}

func (s stubDecoder) Int([]byte, string) (int, error)       { return s.code, s.codeErr }
func (s stubDecoder) String([]byte, string) (string, error) { return s.message, s.msgErr }
func (s stubDecoder) Decode(_ []byte, _ string, v any) error {
	if s.decode == nil {
		return nil
	}
	return s.decode(v)
}

func TestMapperUsesInjectedDecoder(t *testing.T) {
	dec := stubDecoder{
		code: 200,
		decode: func(v any) error {
			v.(*item).ID = 42
			return nil
		},
	}
	m := newTestMapper(t, WithDecoder(dec))
	res := Map[item](m, respond(`ignored`))
	if v, ok := res.Value(); !ok || v.ID != 42 {
		t.Fatalf("expected stubbed payload, got %v", res)
	}

	m = newTestMapper(t, WithDecoder(stubDecoder{code: 7, msgErr: errors.New("absent")}))
	if res := m.MapSuccess(respond(`ignored`)); res.Code() != 7 || res.Message() != "" {
		t.Fatalf("expected service failure with empty message, got %v", res)
	}
}

func TestNewRejectsMissingCodeKey(t *testing.T) {
	if _, err := New(Config{DataKey: "data"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestResultGetReturnsTypedError(t *testing.T) {
	_, err := ServiceFailure[item](403, "forbidden").Get()
	var envErr *Error
	if !errors.As(err, &envErr) || envErr.Kind != KindServiceFailure || envErr.Code != 403 {
		t.Fatalf("unexpected error %v", err)
	}
	if err.Error() != "service failure 403: forbidden" {
		t.Fatalf("unexpected text %q", err.Error())
	}
}

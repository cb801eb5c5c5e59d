package keypath

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// ErrDecode is matched by every *DecodeError.
var ErrDecode = errors.New("keypath decode failed")

// Decoder extracts typed values from a JSON document at a dotted key path.
type Decoder interface {
	Int(body []byte, path string) (int, error)
	String(body []byte, path string) (string, error)
	Decode(body []byte, path string, v any) error
}

// DecodeError reports why a value could not be read at Path.
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", path, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", path, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// GJSON implements Decoder on top of tidwall/gjson path syntax.
type GJSON struct{}

// Default is the decoder used when callers do not supply one.
var Default Decoder = GJSON{}

func (GJSON) lookup(body []byte, path string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &DecodeError{Path: path, Reason: "body is not valid json"}
	}
	if path == "" {
		return gjson.ParseBytes(body), nil
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return gjson.Result{}, &DecodeError{Path: path, Reason: "key not found"}
	}
	return res, nil
}

// Int returns the integer at path. Fractional numbers and non-numbers are rejected.
func (g GJSON) Int(body []byte, path string) (int, error) {
	res, err := g.lookup(body, path)
	if err != nil {
		return 0, err
	}
	if res.Type != gjson.Number {
		return 0, &DecodeError{Path: path, Reason: fmt.Sprintf("expected number, got %s", res.Type)}
	}
	f := res.Float()
	if f != math.Trunc(f) || f >= float64(math.MaxInt64) || f < float64(math.MinInt64) {
		return 0, &DecodeError{Path: path, Reason: fmt.Sprintf("%s is not an integer", res.Raw)}
	}
	return int(res.Int()), nil
}

// String returns the JSON string at path.
func (g GJSON) String(body []byte, path string) (string, error) {
	res, err := g.lookup(body, path)
	if err != nil {
		return "", err
	}
	if res.Type != gjson.String {
		return "", &DecodeError{Path: path, Reason: fmt.Sprintf("expected string, got %s", res.Type)}
	}
	return res.Str, nil
}

// Decode unmarshals the raw JSON found at path into v. A JSON null is rejected.
func (g GJSON) Decode(body []byte, path string, v any) error {
	res, err := g.lookup(body, path)
	if err != nil {
		return err
	}
	if res.Type == gjson.Null {
		return &DecodeError{Path: path, Reason: "null value"}
	}
	if err := json.Unmarshal([]byte(res.Raw), v); err != nil {
		return &DecodeError{Path: path, Reason: "unmarshal", Err: err}
	}
	return nil
}

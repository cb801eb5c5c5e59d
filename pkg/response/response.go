// Package response holds synchronous operations over a single httpclient.Response.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
	"github.com/samvad-hq/samvad-envelope/pkg/keypath"
)

var (
	errEmptyData   = errors.New("response body is empty")
	errInvalidUTF8 = errors.New("response body is not valid utf-8")
)

// FilterStatusCodes returns resp when its status is within [lo, hi].
func FilterStatusCodes(resp httpclient.Response, lo, hi int) (httpclient.Response, error) {
	code := resp.StatusCode()
	if code < lo || code > hi {
		return nil, &Error{Kind: KindStatusCode, Response: resp}
	}
	return resp, nil
}

// FilterStatusCode returns resp when its status equals code.
func FilterStatusCode(resp httpclient.Response, code int) (httpclient.Response, error) {
	return FilterStatusCodes(resp, code, code)
}

// FilterSuccessfulStatusCodes accepts 200-299.
func FilterSuccessfulStatusCodes(resp httpclient.Response) (httpclient.Response, error) {
	return FilterStatusCodes(resp, 200, 299)
}

// FilterSuccessfulStatusAndRedirectCodes accepts 200-399.
func FilterSuccessfulStatusAndRedirectCodes(resp httpclient.Response) (httpclient.Response, error) {
	return FilterStatusCodes(resp, 200, 399)
}

// MapImage decodes the body as png, jpeg, gif, bmp or webp.
func MapImage(resp httpclient.Response) (image.Image, error) {
	body := resp.Body()
	if len(body) == 0 {
		return nil, &Error{Kind: KindImageMapping, Response: resp, Err: errEmptyData}
	}
	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindImageMapping, Response: resp, Err: err}
	}
	return img, nil
}

// MapJSON decodes the body into generic JSON values. An empty body yields nil
// unless failsOnEmptyData is set.
func MapJSON(resp httpclient.Response, failsOnEmptyData bool) (any, error) {
	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		if failsOnEmptyData {
			return nil, &Error{Kind: KindJSONMapping, Response: resp, Err: errEmptyData}
		}
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &Error{Kind: KindJSONMapping, Response: resp, Err: err}
	}
	return out, nil
}

// MapString returns the body as text, or the string found at keyPath when it is set.
func MapString(resp httpclient.Response, keyPath string) (string, error) {
	return MapStringWith(resp, keyPath, keypath.Default)
}

// MapStringWith is MapString with an explicit decoder.
func MapStringWith(resp httpclient.Response, keyPath string, dec keypath.Decoder) (string, error) {
	body := resp.Body()
	if keyPath == "" {
		if !utf8.Valid(body) {
			return "", &Error{Kind: KindStringMapping, Response: resp, Err: errInvalidUTF8}
		}
		return string(body), nil
	}
	s, err := dec.String(body, keyPath)
	if err != nil {
		return "", &Error{Kind: KindStringMapping, Response: resp, Err: err}
	}
	return s, nil
}

// MapInto decodes the value at keyPath (whole body when empty) into v.
// An empty body decodes as "{}" into v, ignoring keyPath, unless failsOnEmptyData is set.
func MapInto(resp httpclient.Response, keyPath string, v any, failsOnEmptyData bool) error {
	return MapIntoWith(resp, keyPath, v, failsOnEmptyData, keypath.Default)
}

// MapIntoWith is MapInto with an explicit decoder.
func MapIntoWith(resp httpclient.Response, keyPath string, v any, failsOnEmptyData bool, dec keypath.Decoder) error {
	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		if failsOnEmptyData {
			return &Error{Kind: KindObjectMapping, Response: resp, Err: errEmptyData}
		}
		body, keyPath = []byte("{}"), ""
	}
	if err := dec.Decode(body, keyPath, v); err != nil {
		return &Error{Kind: KindObjectMapping, Response: resp, Err: err}
	}
	return nil
}

// MapDocument parses the body as HTML.
func MapDocument(resp httpclient.Response) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, &Error{Kind: KindDocumentMapping, Response: resp, Err: err}
	}
	return doc, nil
}

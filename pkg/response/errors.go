package response

import (
	"fmt"

	"github.com/samvad-hq/samvad-envelope/pkg/httpclient"
)

// Kind classifies a response operation failure.
type Kind string

const (
	KindStatusCode      Kind = "status_code"
	KindImageMapping    Kind = "image_mapping"
	KindJSONMapping     Kind = "json_mapping"
	KindStringMapping   Kind = "string_mapping"
	KindObjectMapping   Kind = "object_mapping"
	KindDocumentMapping Kind = "document_mapping"
)

// Error is returned by every operation in this package. Response is the input that failed.
type Error struct {
	Kind     Kind
	Response httpclient.Response
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStatusCode && e.Response != nil:
		return fmt.Sprintf("status code %d not accepted", e.Response.StatusCode())
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

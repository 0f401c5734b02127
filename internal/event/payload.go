package event

import (
	"context"
	"net/http"

	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
)

// Payload is the data carried by one event firing. Every firing builds its
// own payload; listeners must not retain or mutate another firing's value.
type Payload interface {
	ResourceURL() string
}

// Event is the minimal payload: the resource being processed. It is used as
// is for scan::*, fetch::start*, and traverse::* events.
type Event struct {
	Resource string `json:"resource"`
}

func (e Event) ResourceURL() string { return e.Resource }

// Request describes the request that produced a response.
type Request struct {
	Headers http.Header `json:"headers,omitempty"`
	URL     string      `json:"url"`
}

// ResponseBody holds a fetched body. Content is the decoded text for textual
// media types and empty otherwise; RawContent is always the raw bytes.
type ResponseBody struct {
	Content    string `json:"content"`
	RawContent []byte `json:"-"`
	// RawResponse returns the bytes as received on the wire, before any
	// content decoding. Nil when the connector has nothing beyond RawContent.
	RawResponse func(ctx context.Context) ([]byte, error) `json:"-"`
}

// Response is the final response of a fetch. Redirects are flattened into
// Hops; no intermediate fetch::end events are emitted for them.
type Response struct {
	Body       ResponseBody `json:"body"`
	Charset    string       `json:"charset"`
	Headers    http.Header  `json:"headers,omitempty"`
	Hops       []string     `json:"hops"`
	MediaType  string       `json:"media_type"`
	StatusCode int          `json:"status_code"`
	URL        string       `json:"url"`
}

// FetchEnd is the payload of fetch::end::<bucket>.
type FetchEnd struct {
	Event
	// Element is the element that referenced the resource, nil for the target.
	Element  *dom.Element `json:"-"`
	Request  Request      `json:"request"`
	Response Response     `json:"response"`
}

// FetchError is the payload of fetch::error. It is mutually exclusive with
// FetchEnd for the same fetch attempt.
type FetchError struct {
	Event
	Element *dom.Element `json:"-"`
	Err     error        `json:"-"`
	Hops    []string     `json:"hops"`
}

// ElementFound is the payload of element::<tag>.
type ElementFound struct {
	Event
	Element *dom.Element `json:"-"`
}

// CanEvaluate is the payload of can-evaluate::script, fired once a document
// is ready for script evaluation.
type CanEvaluate struct {
	Event
	Document *dom.Document `json:"-"`
}

// ParseError is the payload of parse::error::<kind>::<reason>.
type ParseError struct {
	Event
	Err error `json:"-"`
}

package event

import "strings"

// Lifecycle and resource event names emitted during a scan.
const (
	TypeScanStart         = "scan::start"
	TypeScanEnd           = "scan::end"
	TypeFetchStart        = "fetch::start"
	TypeFetchStartTarget  = "fetch::start::target"
	TypeFetchError        = "fetch::error"
	TypeTraverseStart     = "traverse::start"
	TypeTraverseEnd       = "traverse::end"
	TypeCanEvaluateScript = "can-evaluate::script"
)

// Subscription patterns used by the bundled collaborators.
const (
	PatternFetchEndAny = "fetch::end::*"
	PatternElementAny  = "element::*"
)

// TypeFetchEnd names the successful fetch of a resource in the given media
// type bucket ("html", "script", "css", "image", ...).
func TypeFetchEnd(bucket string) string { return "fetch::end::" + bucket }

// TypeElement names the visit of an element during traversal.
func TypeElement(tag string) string { return "element::" + strings.ToLower(tag) }

// TypeParseStart names the start of parsing a resource of the given kind.
func TypeParseStart(kind string) string { return "parse::start::" + kind }

// TypeParseEnd names a finished parse carrying a structured document.
func TypeParseEnd(kind string) string { return "parse::end::" + kind }

// TypeParseError names a failed parse; reason becomes the final segment.
func TypeParseError(kind, reason string) string { return "parse::error::" + kind + "::" + reason }

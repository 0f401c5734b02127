// Package mediatype decides the media type, charset and event bucket of a
// fetched resource.
package mediatype

import (
	"mime"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"
)

// Buckets used as the last segment of fetch::end::<bucket>.
const (
	BucketCSS      = "css"
	BucketFont     = "font"
	BucketHTML     = "html"
	BucketImage    = "image"
	BucketJSON     = "json"
	BucketManifest = "manifest"
	BucketScript   = "script"
	BucketTxt      = "txt"
	BucketXML      = "xml"
	BucketUnknown  = "unknown"
)

var byExtension = map[string]string{
	"css":         "text/css",
	"gif":         "image/gif",
	"htm":         "text/html",
	"html":        "text/html",
	"ico":         "image/x-icon",
	"jpeg":        "image/jpeg",
	"jpg":         "image/jpeg",
	"js":          "text/javascript",
	"json":        "application/json",
	"mjs":         "text/javascript",
	"otf":         "font/otf",
	"php":         "application/x-httpd-php",
	"png":         "image/png",
	"svg":         "image/svg+xml",
	"ttf":         "font/ttf",
	"txt":         "text/plain",
	"webmanifest": "application/manifest+json",
	"webp":        "image/webp",
	"woff":        "font/woff",
	"woff2":       "font/woff2",
	"xhtml":       "application/xhtml+xml",
	"xml":         "text/xml",
}

// rc files such as .babelrc are JSON when their content says so.
var rcFile = regexp.MustCompile(`^\.[a-z0-9]+rc$`)

// FromExtension maps a file name's extension to a media type. original is
// the type announced by a server, if any: a server rendering .php as HTML
// wins over the extension.
func FromExtension(name, original string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	mt, ok := byExtension[ext]
	if !ok {
		return ""
	}
	if ext == "php" && original != "" {
		return original
	}
	return mt
}

// FromFileName recognizes dot-rc config files, which are JSON when raw
// parses as such and plain text otherwise.
func FromFileName(name string, raw []byte) string {
	base := strings.ToLower(path.Base(name))
	if !rcFile.MatchString(base) {
		return ""
	}
	if mimetype.Detect(raw).Is("application/json") {
		return "text/json"
	}
	return "text/plain"
}

// Determine picks the media type and charset of a resource. A header value
// (Content-Type) is trusted first, then the name, then the content itself.
func Determine(name, header string, raw []byte) (mediaType, charset string) {
	if header != "" {
		if mt, params, err := mime.ParseMediaType(header); err == nil {
			mediaType, charset = mt, strings.ToLower(params["charset"])
		}
	}
	if mt := FromExtension(name, mediaType); mt != "" {
		mediaType = mt
	} else if mt := FromFileName(name, raw); mt != "" {
		mediaType = mt
	}

	detected := mimetype.Detect(raw)
	if mediaType == "" {
		mt, params, err := mime.ParseMediaType(detected.String())
		if err == nil {
			mediaType = mt
			if charset == "" {
				charset = strings.ToLower(params["charset"])
			}
		}
	}
	if charset == "" && IsText(mediaType) {
		if _, params, err := mime.ParseMediaType(detected.String()); err == nil && params["charset"] != "" {
			charset = strings.ToLower(params["charset"])
		} else {
			charset = "utf-8"
		}
	}
	return mediaType, charset
}

// Bucket groups a media type into the event bucket hints subscribe to.
func Bucket(mediaType string) string {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	switch {
	case mt == "":
		return BucketUnknown
	case strings.HasPrefix(mt, "image/"):
		return BucketImage
	case strings.HasPrefix(mt, "font/"), mt == "application/vnd.ms-fontobject",
		mt == "application/font-woff", mt == "application/font-woff2",
		mt == "application/x-font-ttf", mt == "application/x-font-otf":
		return BucketFont
	}
	switch mt {
	case "text/html", "application/xhtml+xml":
		return BucketHTML
	case "text/javascript", "application/javascript", "application/x-javascript", "application/ecmascript":
		return BucketScript
	case "text/css":
		return BucketCSS
	case "application/json", "text/json":
		return BucketJSON
	case "application/manifest+json":
		return BucketManifest
	case "text/xml", "application/xml":
		return BucketXML
	case "text/plain":
		return BucketTxt
	}
	return BucketUnknown
}

var textApplication = map[string]bool{
	"application/javascript":    true,
	"application/json":          true,
	"application/manifest+json": true,
	"application/x-javascript":  true,
	"application/x-httpd-php":   true,
	"application/xhtml+xml":     true,
	"application/xml":           true,
	"image/svg+xml":             true,
}

// IsText reports whether content of mediaType should be decoded as text.
func IsText(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	return strings.HasPrefix(mt, "text/") || textApplication[mt]
}

// Decode converts raw bytes in charset cs to a UTF-8 string. Unknown
// charsets and decoding failures leave the bytes as they are.
func Decode(raw []byte, cs string) string {
	if cs == "" || strings.EqualFold(cs, "utf-8") {
		return string(raw)
	}
	enc, name := charset.Lookup(cs)
	if enc == nil || name == "utf-8" {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

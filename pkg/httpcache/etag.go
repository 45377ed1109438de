package httpcache

import (
	"fmt"
	"mime"

	"github.com/cespare/xxhash/v2"
)

// ETag returns a strong validator derived from the response body.
func ETag(body []byte) string {
	return fmt.Sprintf(`"%016x-%x"`, xxhash.Sum64(body), len(body))
}

// charset returns the charset parameter of a Content-Type value, or "".
func charset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// withCharset adds encoding as charset parameter when contentType lacks one.
func withCharset(contentType, encoding string) string {
	if contentType == "" || encoding == "" || charset(contentType) != "" {
		return contentType
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	params["charset"] = encoding
	return mime.FormatMediaType(mediaType, params)
}

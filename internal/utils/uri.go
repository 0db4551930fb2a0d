package utils

import (
	"net/url"
	"strings"

	"edge_gate/internal/dataType"
)

// ParseQuery splits a raw query string into ordered pairs.
// The first occurrence of a key wins; pairs that fail to unescape keep their raw text.
func ParseQuery(rawQuery string) []dataType.QueryParam {
	if rawQuery == "" {
		return nil
	}
	var params []dataType.QueryParam
	seen := make(map[string]struct{})
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		params = append(params, dataType.QueryParam{Key: key, Value: value})
	}
	return params
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes a query key or value the way browsers'
// encodeURIComponent does: spaces become %20 and !'()* stay literal
func EscapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// EncodeQuery joins params as escaped-key=escaped-value in their original order
func EncodeQuery(params []dataType.QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(EscapeComponent(p.Key))
		b.WriteByte('=')
		b.WriteString(EscapeComponent(p.Value))
	}
	return b.String()
}

// SplitRequestURI separates the path from the raw query of a request URI.
// An empty path becomes "/".
func SplitRequestURI(requestURI string) (string, string) {
	path, rawQuery, _ := strings.Cut(requestURI, "?")
	if idx := strings.IndexByte(path, '#'); idx != -1 {
		path = path[:idx]
	}
	if idx := strings.IndexByte(rawQuery, '#'); idx != -1 {
		rawQuery = rawQuery[:idx]
	}
	if path == "" {
		path = "/"
	}
	return path, rawQuery
}

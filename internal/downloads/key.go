package downloads

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Tracking parameters stripped during normalization so share links and plain
// links to the same media dedup together.
var trackingParams = map[string]struct{}{
	"si":      {},
	"feature": {},
	"fbclid":  {},
	"gclid":   {},
}

// NormalizeURL canonicalizes a media URL for dedup purposes: lowercases the
// scheme and host, strips default ports, fragments, and tracking parameters,
// and sorts the remaining query.
func NormalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url has no host")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if host, port, found := strings.Cut(parsed.Host, ":"); found {
		if (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443") {
			parsed.Host = host
		}
	}
	parsed.Fragment = ""

	query := parsed.Query()
	for param := range query {
		if isTrackingParam(param) {
			query.Del(param)
		}
	}
	parsed.RawQuery = encodeSorted(query)

	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String(), nil
}

func isTrackingParam(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	_, ok := trackingParams[lower]
	return ok
}

func encodeSorted(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}

// Key derives the dedup key for a request. Two submissions collide only when
// the normalized URL, platform, and format all match.
func Key(normalizedURL, platform, format string) string {
	sum := sha256.Sum256([]byte(normalizedURL + "\x00" + strings.ToLower(platform) + "\x00" + strings.ToLower(format)))
	return hex.EncodeToString(sum[:])
}

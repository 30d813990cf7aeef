package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// trackingParams are query parameters stripped during URL normalization.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
	"gclid":        true,
	"fbclid":       true,
	"ref":          true,
	"ref_src":      true,
}

// NormalizeURL canonicalizes a URL for deduplication: lowercase host,
// default ports stripped, fragment dropped, tracking params removed,
// trailing slash collapsed. Returns "" for unparseable input.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Fragment = ""
	host := strings.ToLower(u.Host)
	// Internationalized hostnames collapse to punycode so unicode and
	// ASCII spellings of the same host dedup together.
	if ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(host, ":"+u.Port())); err == nil && ascii != "" {
		if port := u.Port(); port != "" {
			host = ascii + ":" + port
		} else {
			host = ascii
		}
	}
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	u.Scheme = strings.ToLower(u.Scheme)

	q := u.Query()
	for param := range q {
		if trackingParams[strings.ToLower(param)] {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}

	return u.String()
}

const contentHashPrefixLen = 256

// ContentHash fingerprints chunk text for chunks without a URL. Only the
// first 256 trimmed characters participate, so re-chunked copies of the
// same source still collide.
func ContentHash(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > contentHashPrefixLen {
		trimmed = trimmed[:contentHashPrefixLen]
	}
	sum := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:])
}

// DedupKey returns the identity used for cross-layer deduplication: the
// normalized URL when present, the content hash otherwise.
func DedupKey(rawURL, text string) string {
	if key := NormalizeURL(rawURL); key != "" {
		return "url:" + key
	}
	return "hash:" + ContentHash(text)
}

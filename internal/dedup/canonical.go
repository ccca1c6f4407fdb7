package dedup

import (
	"net/url"
	"strings"
)

// trackingParams are exact query keys that never identify content.
var trackingParams = map[string]struct{}{
	"ref":    {},
	"source": {},
	"fbclid": {},
	"gclid":  {},
}

const trackingPrefix = "utm_"

// NormalizeURL reduces a link to the form used as the primary duplicate key:
// lowercase host, no fragment, no trailing slash, no tracking parameters.
// It never fails; unparseable input is lowercased and trimmed instead.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}

	netloc := u.Host
	if u.User != nil {
		netloc = u.User.String() + "@" + netloc
	}
	netloc = strings.ToLower(netloc)

	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	}
	path = strings.TrimRight(path, "/")

	query := filterQuery(u.RawQuery)

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}
	if netloc != "" {
		b.WriteString("//")
		b.WriteString(netloc)
		if path != "" && !strings.HasPrefix(path, "/") {
			b.WriteByte('/')
		}
	}
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

// filterQuery drops tracking parameters and re-encodes the rest in their
// original order.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			kept = append(kept, part)
			continue
		}
		if isTrackingParam(key) {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			kept = append(kept, part)
			continue
		}
		kept = append(kept, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	return strings.Join(kept, "&")
}

func isTrackingParam(key string) bool {
	if strings.HasPrefix(key, trackingPrefix) {
		return true
	}
	_, ok := trackingParams[key]
	return ok
}

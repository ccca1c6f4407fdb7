package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"tracking prefix and host case", "HTTPS://Example.com/Path/?utm_source=x&id=5", "https://example.com/Path?id=5"},
		{"already canonical", "https://example.com/Path?id=5", "https://example.com/Path?id=5"},
		{"fragment dropped", "https://example.com/a#section-2", "https://example.com/a"},
		{"root slash trimmed", "https://example.com/", "https://example.com"},
		{"repeated trailing slashes", "https://example.com/a//", "https://example.com/a"},
		{"denylist keeps order", "https://example.com/a?b=2&ref=x&a=1&fbclid=z&gclid=q&source=s&utm_medium=m", "https://example.com/a?b=2&a=1"},
		{"only tracking params", "https://example.com/article-2?utm_source=twitter", "https://example.com/article-2"},
		{"repeated keys kept", "https://example.com/a?id=1&id=2", "https://example.com/a?id=1&id=2"},
		{"bare key gains equals", "https://example.com/a?amp", "https://example.com/a?amp="},
		{"values re-encoded", "https://example.com/a?q=a+b&x=%2F", "https://example.com/a?q=a+b&x=%2F"},
		{"prefix is case sensitive", "https://example.com/a?UTM_source=x", "https://example.com/a?UTM_source=x"},
		{"userinfo lowercased with host", "https://User@Example.com/a", "https://user@example.com/a"},
		{"port kept", "http://Example.com:8080/a/", "http://example.com:8080/a"},
		{"unparseable falls back", "HTTP://Example.COM%zz/Path/", "http://example.com%zz/path"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, NormalizeURL(tc.in))
		})
	}
}

func TestNormalizeURLTrackingVariantsCollapse(t *testing.T) {
	t.Parallel()

	base := NormalizeURL("https://news.example.org/story/42")
	variants := []string{
		"https://NEWS.example.org/story/42/",
		"https://news.example.org/story/42?utm_campaign=weekly&utm_source=mail",
		"https://news.example.org/story/42#comments",
		"https://news.example.org/story/42?fbclid=abc",
	}
	for _, v := range variants {
		assert.Equal(t, base, NormalizeURL(v), v)
	}
}

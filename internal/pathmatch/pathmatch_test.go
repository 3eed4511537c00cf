package pathmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "v1/foo", Normalize("/V1/Foo/"))
	assert.Equal(t, "", Normalize("///"))
}

func TestMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"/v1/foo", "/api/v1/foo/details", true},
		{"/api/v1/foo/details", "/v1/foo", true},
		{"/V1/FOO/", "v1/foo", true},
		{"/v1/foo/123", "/v1/foo/{id}", false},
		{"/v1/foo", "/v1/bar", false},
		{"", "/anything", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestSameMethod(t *testing.T) {
	assert.True(t, SameMethod("get", "GET"))
	assert.False(t, SameMethod("GET", "POST"))
}

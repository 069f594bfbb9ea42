package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name, base, key, want string
	}{
		{"plain", "http://localhost:9000", "u/1.png", "http://localhost:9000/avatars/u/1.png"},
		{"trailing slash", "http://localhost:9000/", "/u/1.png", "http://localhost:9000/avatars/u/1.png"},
		{"empty key", "http://localhost:9000", "", ""},
		{"already url", "http://localhost:9000", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PublicURL(tc.base, "avatars", tc.key))
		})
	}
}

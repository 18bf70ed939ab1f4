package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"jdoe@udel.edu", true},
		{"j.doe+club@udel.edu", true},
		{"", false},
		{"jdoe", false},
		{"@udel.edu", false},
		{"a@b@udel.edu", false},
		{"jdoe@udel", false},
		{"jdoe@.edu", false},
		{"j doe@udel.edu", false},
		{"<jdoe@udel.edu>", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			require.Equal(t, tt.valid, validEmail(tt.email))
		})
	}
}

func TestSameOriginRedirect(t *testing.T) {
	const base = "https://portal.test"
	tests := []struct {
		name       string
		redirectTo string
		expected   string
	}{
		{"empty", "", ""},
		{"path", "/opportunities/42", "https://portal.test/opportunities/42"},
		{"absolute same origin", "https://portal.test/events?x=1", "https://portal.test/events?x=1"},
		{"other host", "https://evil.test/", ""},
		{"scheme relative", "//evil.test/", ""},
		{"other scheme", "http://portal.test/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, sameOriginRedirect(base, tt.redirectTo))
		})
	}
}

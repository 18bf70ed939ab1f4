package policy_test

import (
	"testing"

	"github.com/jrsteele09/assoc-portal/policy"
	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/stretchr/testify/require"
)

func TestDomainPolicy_IsAllowed(t *testing.T) {
	p := policy.NewDomainPolicy("@udel.edu")

	tests := []struct {
		email string
		want  bool
	}{
		{"a@udel.edu", true},
		{"first.last@udel.edu", true},
		{"a@UDEL.EDU", false},
		{"a@Udel.edu", false},
		{"a@notudel.edu", false},
		{"a@udel.edu.evil.com", false},
		{"@udel.edu", false},
		{"a@b@udel.edu", false},
		{"udel.edu", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			require.Equal(t, tt.want, p.IsAllowed(tt.email))
		})
	}
}

func TestDomainPolicy_AllowsSession(t *testing.T) {
	p := policy.NewDomainPolicy("")

	require.False(t, p.AllowsSession(nil))
	require.False(t, p.AllowsSession(&sessions.Session{}))
	require.True(t, p.AllowsSession(&sessions.Session{Email: "student@udel.edu"}))
}

func TestDomainPolicy_Suffix(t *testing.T) {
	require.Equal(t, "@udel.edu", policy.NewDomainPolicy("udel.edu").Suffix())
	require.Equal(t, "Only @udel.edu emails are allowed", policy.NewDomainPolicy("@udel.edu").RejectionMessage())
}

package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// MagicLink is the content of a sign-in email.
type MagicLink struct {
	To      string
	Link    string
	Expires string // human readable, e.g. "15 minutes"
}

// Mailer delivers magic links.
type Mailer interface {
	SendMagicLink(ctx context.Context, msg MagicLink) error
}

// LogMailer writes links to the log instead of sending them. Used in DEV.
type LogMailer struct{}

func (LogMailer) SendMagicLink(_ context.Context, msg MagicLink) error {
	log.Info().Str("to", msg.To).Str("link", msg.Link).Msg("magic link (not sent)")
	return nil
}

func textBody(msg MagicLink) string {
	return fmt.Sprintf("Click the link below to sign in:\n\n%s\n\nThis link expires in %s. If you did not request it you can ignore this email.", msg.Link, msg.Expires)
}

func htmlBody(msg MagicLink) string {
	link := strings.ReplaceAll(msg.Link, `"`, "%22")
	return fmt.Sprintf(
		`<p>Click the link below to sign in:</p><p><a href="%s">Sign in</a></p><p>This link expires in %s.</p>`,
		link, msg.Expires,
	)
}

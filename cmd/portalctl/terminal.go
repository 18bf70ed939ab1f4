package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/jrsteele09/assoc-portal/authcontext"
)

// terminalNavigator reports the page changes a browser would make.
type terminalNavigator struct{}

func (*terminalNavigator) Navigate(path string) {
	if msg := loginError(path); msg != "" {
		warn("%s", msg)
		return
	}
	info("-> %s", path)
}

func (*terminalNavigator) Reload(path string) {
	info("-> %s (reload)", path)
}

// loginError pulls the message out of a /login?error= path.
func loginError(path string) string {
	u, err := url.Parse(path)
	if err != nil || u.Path != "/login" {
		return ""
	}
	return u.Query().Get("error")
}

func printState(s authcontext.State) {
	if s.Session == nil {
		info("signed out")
		return
	}
	role := "member"
	if s.IsAdmin {
		role = "admin"
	}
	fmt.Printf("%s (%s)\n", s.Session.Email, role)
	info("user id:  %s", s.Session.UserID)
	if s.Session.HasExpiry() {
		info("expires:  %s", s.Session.Expiry().Local().Format(time.RFC1123))
	}
}

func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

func warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[33m!\033[0m %s\n", fmt.Sprintf(format, args...))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jrsteele09/assoc-portal/authcontext"
	"github.com/jrsteele09/assoc-portal/sdk"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func loginCmd(a *app) *cobra.Command {
	var redirect string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Email a sign-in link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(args[0])
			if !a.policy.IsAllowed(email) {
				return errors.New(a.policy.RejectionMessage())
			}

			redirectTo := ""
			if redirect != "" {
				redirectTo = strings.TrimRight(a.serverURL, "/") + redirect
			}
			if err := a.client.SendMagicLink(cmd.Context(), email, redirectTo); err != nil {
				return err
			}
			success("Sign-in link sent to %s", email)
			info("Run: portalctl confirm '<link from the email>'")
			return nil
		},
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "portal path the link should lead to, e.g. /opportunities/42")
	return cmd
}

func confirmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <link>",
		Short: "Redeem a sign-in link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.client.ConfirmLink(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !a.policy.AllowsSession(s) {
				if err := a.client.SignOut(cmd.Context()); err != nil {
					log.Warn().Err(err).Msg("sign out after domain rejection failed")
				}
				return errors.New(a.policy.RejectionMessage())
			}
			success("Signed in as %s", s.Email)
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.refreshIfExpired(cmd.Context())

			ac := a.authContext(&terminalNavigator{})
			state := awaitLoaded(cmd.Context(), ac, a.config.GetInitTimeout()+a.config.GetAdminFetchTimeout())
			ac.Unmount()

			if state.Session == nil {
				return sdk.ErrNoSession
			}
			printState(state)
			return nil
		},
	}
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.client.RefreshSession(cmd.Context())
			if err != nil {
				return err
			}
			success("Session refreshed, expires %s", s.Expiry().Local().Format(time.Kitchen))
			return nil
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive and print every change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.refreshIfExpired(ctx)
			nav := &terminalNavigator{}
			ac := a.authContext(nav)
			ac.OnChange(func(s authcontext.State) {
				if !s.IsLoading {
					printState(s)
				}
			})
			ac.Mount(ctx)
			<-ctx.Done()
			ac.Unmount()
			return nil
		},
	}
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ac := a.authContext(&terminalNavigator{})
			awaitLoaded(cmd.Context(), ac, a.config.GetInitTimeout())
			ac.SignOut(cmd.Context())
			ac.Unmount()
			success("Signed out")
			return nil
		},
	}
}

// refreshIfExpired renews a stored session whose access token has lapsed, so
// the auth context does not discard it on load.
func (a *app) refreshIfExpired(ctx context.Context) {
	s, err := a.client.GetSession(ctx)
	if err != nil || s == nil || !s.ProviderExpired(time.Now()) {
		return
	}
	if _, err := a.client.RefreshSession(ctx); err != nil {
		log.Debug().Err(err).Msg("stored session could not be refreshed")
	}
}

// awaitLoaded mounts ac and waits until it has finished loading.
func awaitLoaded(ctx context.Context, ac *authcontext.Context, timeout time.Duration) authcontext.State {
	loaded := make(chan struct{}, 1)
	ac.OnChange(func(s authcontext.State) {
		if !s.IsLoading {
			select {
			case loaded <- struct{}{}:
			default:
			}
		}
	})
	ac.Mount(ctx)

	select {
	case <-loaded:
	case <-time.After(timeout):
	case <-ctx.Done():
	}
	return ac.State()
}

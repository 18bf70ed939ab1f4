// Command portalctl signs in to the portal from a terminal. It keeps its
// session in a local BoltDB file and runs the same client auth context a
// browser tab does.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/jrsteele09/assoc-portal/authcontext"
	"github.com/jrsteele09/assoc-portal/internal/config"
	"github.com/jrsteele09/assoc-portal/internal/logging"
	"github.com/jrsteele09/assoc-portal/policy"
	"github.com/jrsteele09/assoc-portal/sdk"
	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/jrsteele09/assoc-portal/storage/boltstore"
	"github.com/spf13/cobra"
)

const storeBucket = "portalctl"

var _ authcontext.Storage = (*boltstore.Store)(nil)

// app is the state shared by every command.
type app struct {
	serverURL string
	storePath string
	verbose   bool

	config config.Config
	policy policy.DomainPolicy
	store  *boltstore.Store
	client *sdk.Client
}

func main() {
	_ = godotenv.Load()

	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Sign in to the student association portal from the command line",
		Long: `portalctl signs in to the portal with an emailed magic link.

Request a link with "portalctl login", then paste the link from the email
into "portalctl confirm". The session is stored locally and refreshed while
"portalctl watch" runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "portal base URL (default $BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&a.storePath, "store", defaultStorePath(), "session store file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(
		loginCmd(a),
		confirmCmd(a),
		whoamiCmd(a),
		refreshCmd(a),
		watchCmd(a),
		logoutCmd(a),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func (a *app) open() error {
	a.config = config.New()
	if a.verbose {
		logging.SetupWriter("DEV", os.Stderr)
	} else {
		logging.SetupWriter("CLI", os.Stderr)
	}

	if a.serverURL == "" {
		a.serverURL = a.config.GetBaseURL()
	}
	a.policy = policy.NewDomainPolicy(a.config.GetAllowedEmailDomain())

	store, err := boltstore.Open(a.storePath, storeBucket)
	if err != nil {
		return fmt.Errorf("open session store %s: %w", a.storePath, err)
	}
	a.store = store
	a.client = sdk.New(a.serverURL, store)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// authContext builds the client auth context over the stored session.
func (a *app) authContext(nav authcontext.Navigator) *authcontext.Context {
	return authcontext.New(a.client, a.client, a.store, nav,
		authcontext.WithPolicy(a.policy),
		authcontext.WithValidator(sessions.NewValidator(
			sessions.WithWindow(a.config.GetLocalSessionWindow()),
			sessions.WithRefreshThreshold(a.config.GetRefreshThreshold()),
		)),
		authcontext.WithInitTimeout(a.config.GetInitTimeout()),
		authcontext.WithAdminFetchTimeout(a.config.GetAdminFetchTimeout()),
		authcontext.WithLivenessInterval(a.config.GetLivenessInterval()),
	)
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "portalctl.db")
	}
	return filepath.Join(dir, "portalctl", "session.db")
}

// Package cli implements tripctl, a terminal client for a tripboard server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	sqlitekv "github.com/pixeltrip/tripboard/internal/adapters/sqlite/kvstore"
	"github.com/pixeltrip/tripboard/internal/app/session"
	"github.com/pixeltrip/tripboard/internal/client"
	"github.com/pixeltrip/tripboard/internal/platform/logging"
)

var errNotJoined = errors.New("not joined to a trip; run `tripctl join <code>` first")

type app struct {
	v          *viper.Viper
	configFile string
	debug      bool
	log        *zap.Logger

	// httpClient overrides the API client transport in tests.
	httpClient *http.Client
}

// Execute runs tripctl with the process arguments.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{v: viper.New(), log: zap.NewNop()})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tripctl",
		Short:         "Plan a group trip from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(a.v, a.configFile); err != nil {
				return err
			}
			if a.debug {
				l, err := logging.New(true, "debug")
				if err != nil {
					return err
				}
				a.log = l
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", DefaultConfigFile(), "config file")
	root.PersistentFlags().String("server", "", "tripboard server URL (overrides the config file)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "print debugging information")
	_ = a.v.BindPFlag("server", root.PersistentFlags().Lookup("server"))

	root.AddCommand(
		newJoinCmd(a),
		newWhoamiCmd(a),
		newLogoutCmd(a),
		newTitleCmd(a),
		newParticipantsCmd(a),
		newWatchCmd(a),
		newLodgingCmd(a),
		newExpensesCmd(a),
		newFoodCmd(a),
		newActivitiesCmd(a),
		newGameCmd(a),
	)
	return root
}

// withSessions opens the session store for the duration of fn.
func (a *app) withSessions(ctx context.Context, fn func(*session.Manager) error) error {
	kv, err := sqlitekv.Open(ctx, sessionDBPath(a.v))
	if err != nil {
		return err
	}
	defer func() {
		_ = kv.Close()
	}()
	return fn(session.NewManager(kv, a.log))
}

func (a *app) newClient(server, token string) *client.Client {
	var opts []client.Option
	if a.httpClient != nil {
		opts = append(opts, client.WithHTTPClient(a.httpClient))
	}
	return client.New(server, token, opts...)
}

// authed returns a client for the saved session.
func (a *app) authed(ctx context.Context) (*client.Client, session.Session, error) {
	var (
		s  session.Session
		ok bool
	)
	err := a.withSessions(ctx, func(m *session.Manager) error {
		var err error
		s, ok, err = m.Load(ctx)
		return err
	})
	if err != nil {
		return nil, session.Session{}, err
	}
	if !ok {
		return nil, session.Session{}, errNotJoined
	}
	server := s.Server
	if server == "" {
		server = a.v.GetString("server")
	}
	return a.newClient(server, s.Token), s, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

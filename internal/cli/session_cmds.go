package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pixeltrip/tripboard/internal/adapters/httpapi"
	"github.com/pixeltrip/tripboard/internal/app/session"
	"github.com/pixeltrip/tripboard/internal/client"
	"github.com/pixeltrip/tripboard/internal/domain"
)

func newJoinCmd(a *app) *cobra.Command {
	var name, avatar, as string
	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a trip with an invite or admin code",
		Long: `Join a trip group. Pass --name to join as a new participant, or --as with the id
of an existing participant to log back in. Without either, the returning participants of the
group are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := a.newClient(a.v.GetString("server"), "")
			code := args[0]

			if name == "" && as == "" {
				res, err := c.ResolveInvite(ctx, code)
				if err != nil {
					return err
				}
				if res.Admin == nil {
					return printReturning(cmd, res)
				}
			}

			sess, err := c.Join(ctx, httpapi.CreateSessionRequest{Code: code, Name: name, Avatar: avatar, ParticipantId: as})
			if err != nil {
				return err
			}
			p := sess.Participant
			err = a.withSessions(ctx, func(m *session.Manager) error {
				return m.Save(ctx, session.Session{
					Server:    c.BaseURL(),
					Token:     sess.Token,
					ExpiresAt: sess.ExpiresAt,
					Actor: domain.Actor{
						ParticipantID: domain.ParticipantID(p.ParticipantId),
						TripGroup:     domain.TripGroupID(sess.TripGroup),
						Name:          p.Name,
						Avatar:        p.Avatar,
						IsAdmin:       p.IsAdmin,
					},
				})
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined %s as %s %s\n", sess.TripGroup, p.Avatar, p.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name for a new participant")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar emoji")
	cmd.Flags().StringVar(&as, "as", "", "participant id to log back in as")
	return cmd
}

func printReturning(cmd *cobra.Command, res httpapi.ResolveInviteResponse) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", res.Description, res.TripGroup)
	if len(res.Returning) == 0 {
		return errors.New("no participants yet; pass --name to join")
	}
	tw := table(out)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, p := range res.Returning {
		fmt.Fprintf(tw, "%s\t%s %s\n", p.ParticipantId, p.Avatar, p.Name)
	}
	_ = tw.Flush()
	return errors.New("pass --name to join as someone new, or --as <id> to log back in")
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, s, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			role := ""
			if s.Actor.IsAdmin {
				role = " (admin)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\nid:     %s\ntrip:   %s\nserver: %s\nexpires: %s\n",
				s.Actor.Avatar, s.Actor.Name, role, s.Actor.ParticipantID, s.Actor.TripGroup, s.Server,
				s.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withSessions(ctx, func(m *session.Manager) error {
				if err := m.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newTitleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "title [new title]",
		Short: "Show or rename (admin) the trip",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			var trip httpapi.TripResponse
			if len(args) == 0 {
				trip, err = c.Trip(cmd.Context())
			} else {
				trip, err = c.RenameTrip(cmd.Context(), strings.Join(args, " "))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), trip.Title)
			return nil
		},
	}
}

func newParticipantsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participants",
		Short: "List or remove (admin) participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			ps, err := c.Participants(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tADMIN")
			for _, p := range ps {
				fmt.Fprintf(tw, "%s\t%s %s\t%v\n", p.ParticipantId, p.Avatar, p.Name, p.IsAdmin)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			return c.RemoveParticipant(cmd.Context(), args[0])
		},
	})
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "watch <collection>",
		Short:     "Stream live snapshots of a collection",
		Long:      "Collections: " + strings.Join(httpapi.StreamCollections, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: httpapi.StreamCollections,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(httpapi.StreamCollections, args[0]) {
				return fmt.Errorf("unknown collection %q (want one of %s)", args[0], strings.Join(httpapi.StreamCollections, ", "))
			}
			c, _, err := a.authed(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, c, args[0], cmd)
		},
	}
}

func watch(ctx context.Context, c *client.Client, collection string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	return c.Watch(ctx, collection, func(f client.Frame) error {
		if f.Error != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f.Error.Code, f.Error.Message)
			return nil
		}
		fmt.Fprintf(out, "%s %s\n", f.Collection, f.Data)
		return nil
	})
}

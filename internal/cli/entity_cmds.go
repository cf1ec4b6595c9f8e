package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oapi-codegen/nullable"
	"github.com/spf13/cobra"

	"github.com/pixeltrip/tripboard/internal/adapters/httpapi"
	"github.com/pixeltrip/tripboard/internal/app/activities"
	"github.com/pixeltrip/tripboard/internal/app/food"
	"github.com/pixeltrip/tripboard/internal/client"
	"github.com/pixeltrip/tripboard/internal/domain"
)

// authedRunE wraps commands that need a session.
func authedRunE(a *app, fn func(cmd *cobra.Command, c *client.Client, me domain.Actor, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, s, err := a.authed(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, c, s.Actor, args)
	}
}

func printCreated(cmd *cobra.Command, id string) {
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", id)
}

func newLodgingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lodging",
		Short: "Lodging options, ranked by votes",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List lodging options, best first",
		Args:  cobra.NoArgs,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, _ []string) error {
			recs, err := c.Lodging(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tSCORE\tTITLE\tPRICE\tLINK")
			for _, r := range recs {
				l := r.Value
				fmt.Fprintf(tw, "%s\t%+d\t%s\t%s\t%s\n", r.ID, l.Votes.Score(), l.Title, l.Price, l.Link)
			}
			return tw.Flush()
		}),
	}

	var req httpapi.CreateLodgingRequest
	add := &cobra.Command{
		Use:   "add <link> <title...>",
		Short: "Suggest a place to stay",
		Args:  cobra.MinimumNArgs(2),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			req.Link = args[0]
			req.Title = strings.Join(args[1:], " ")
			id, err := c.AddLodging(cmd.Context(), req)
			if err != nil {
				return err
			}
			printCreated(cmd, id)
			return nil
		}),
	}
	add.Flags().StringVar(&req.Description, "description", "", "description")
	add.Flags().StringVar(&req.Price, "price", "", "price per night")
	add.Flags().IntVar(&req.Bedrooms, "bedrooms", 0, "number of bedrooms")
	add.Flags().Float64Var(&req.Bathrooms, "bathrooms", 0, "number of bathrooms")
	add.Flags().IntVar(&req.Guests, "guests", 0, "maximum guests")

	vote := &cobra.Command{
		Use:       "vote <id> <like|dislike>",
		Short:     "Like or dislike an option",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.VoteLike), string(domain.VoteDislike)},
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.Vote(cmd.Context(), args[0], domain.VoteKind(args[1]))
		}),
	}

	comment := &cobra.Command{
		Use:   "comment <id> <text...>",
		Short: "Comment on an option",
		Args:  cobra.MinimumNArgs(2),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.Comment(cmd.Context(), args[0], strings.Join(args[1:], " "))
		}),
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an option you added",
		Args:  cobra.ExactArgs(1),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.DeleteLodging(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(list, add, vote, comment, rm)
	return cmd
}

func newExpensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Shared expenses and balances",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, _ []string) error {
			recs, err := c.Expenses(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tAMOUNT\tDESCRIPTION\tPAID BY\tSPLIT")
			for _, r := range recs {
				e := r.Value
				fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%d\n", r.ID, e.Amount, e.Description, e.PaidBy, len(e.SplitBetween))
			}
			return tw.Flush()
		}),
	}

	var paidBy string
	var split []string
	add := &cobra.Command{
		Use:   "add <amount> <description...>",
		Short: "Record an expense (split evenly between everyone by default)",
		Args:  cobra.MinimumNArgs(2),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, me domain.Actor, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("amount must be a number: %w", err)
			}
			req := httpapi.CreateExpenseRequest{
				Description:  strings.Join(args[1:], " "),
				Amount:       amount,
				PaidBy:       paidBy,
				SplitBetween: split,
			}
			if req.PaidBy == "" {
				req.PaidBy = string(me.ParticipantID)
			}
			if len(req.SplitBetween) == 0 {
				ps, err := c.Participants(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range ps {
					req.SplitBetween = append(req.SplitBetween, p.ParticipantId)
				}
			}
			id, err := c.AddExpense(cmd.Context(), req)
			if err != nil {
				return err
			}
			printCreated(cmd, id)
			return nil
		}),
	}
	add.Flags().StringVar(&paidBy, "paid-by", "", "participant id of the payer (default: you)")
	add.Flags().StringSliceVar(&split, "split", nil, "participant ids sharing the cost (default: everyone)")

	balances := &cobra.Command{
		Use:   "balances",
		Short: "Show who owes and who is owed",
		Args:  cobra.NoArgs,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, _ []string) error {
			bs, err := c.Balances(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tBALANCE")
			for _, b := range bs {
				fmt.Fprintf(tw, "%s\t%+.2f\n", b.Name, b.Amount)
			}
			return tw.Flush()
		}),
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an expense you added",
		Args:  cobra.ExactArgs(1),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.DeleteExpense(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(list, add, balances, rm)
	return cmd
}

func newFoodCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "food",
		Short: "Grocery and restaurant wishlist",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the food board",
		Args:  cobra.NoArgs,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, _ []string) error {
			b, err := c.Food(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tLIST\tDONE\tNAME\tWANTED BY")
			section := func(label string, recs []food.Record) {
				for _, r := range recs {
					f := r.Value
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, label, check(f.Completed), f.Name, f.WantedBy)
				}
			}
			section("grocery", b.GroceryPending)
			section("grocery", b.GroceryCompleted)
			section("restaurant", b.RestaurantPending)
			section("restaurant", b.RestaurantCompleted)
			return tw.Flush()
		}),
	}

	var req httpapi.CreateFoodRequest
	add := &cobra.Command{
		Use:   "add <name...>",
		Short: "Add a grocery item or restaurant",
		Args:  cobra.MinimumNArgs(1),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			req.Name = strings.Join(args, " ")
			id, err := c.AddFood(cmd.Context(), req)
			if err != nil {
				return err
			}
			printCreated(cmd, id)
			return nil
		}),
	}
	add.Flags().StringVar(&req.Type, "type", string(domain.FoodGrocery), "grocery or restaurant")
	add.Flags().StringVar(&req.Description, "description", "", "description")
	add.Flags().StringVar(&req.WantedBy, "wanted-by", "", "who wants it (default: you)")

	var undo bool
	done := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an item as bought or visited",
		Args:  cobra.ExactArgs(1),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.UpdateFood(cmd.Context(), args[0], httpapi.UpdateFoodRequest{
				Completed: nullable.NewNullableWithValue(!undo),
			})
		}),
	}
	done.Flags().BoolVar(&undo, "undo", false, "mark as not done")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item you added",
		Args:  cobra.ExactArgs(1),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.DeleteFood(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(list, add, done, rm)
	return cmd
}

func newActivitiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Things to do during the trip",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the activity board",
		Args:  cobra.NoArgs,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, _ []string) error {
			b, err := c.Activities(cmd.Context())
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tCONFIRMED\tDONE\tNAME\tWHERE\tWHEN")
			for _, r := range append(b.Pending, b.Completed...) {
				v := r.Value
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, check(v.Confirmed), check(v.Completed), v.Name, v.Location, v.PreferredDate)
			}
			return tw.Flush()
		}),
	}

	var req httpapi.CreateActivityRequest
	add := &cobra.Command{
		Use:   "add <name...>",
		Short: "Suggest an activity",
		Args:  cobra.MinimumNArgs(1),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			req.Name = strings.Join(args, " ")
			id, err := c.AddActivity(cmd.Context(), req)
			if err != nil {
				return err
			}
			printCreated(cmd, id)
			return nil
		}),
	}
	add.Flags().StringVar(&req.Location, "location", "", "where")
	add.Flags().StringVar(&req.PreferredDate, "date", "", "preferred date")
	add.Flags().StringVar(&req.Link, "link", "", "link with details")

	toggle := &cobra.Command{
		Use:       "toggle <id> <completed|confirmed>",
		Short:     "Flip the completed or confirmed flag",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{activities.FieldCompleted, activities.FieldConfirmed},
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			b, err := c.Activities(cmd.Context())
			if err != nil {
				return err
			}
			var cur *activities.Record
			for _, r := range append(b.Pending, b.Completed...) {
				if string(r.ID) == args[0] {
					cur = &r
					break
				}
			}
			if cur == nil {
				return fmt.Errorf("activity %s not found", args[0])
			}
			var req httpapi.UpdateActivityRequest
			var now bool
			switch args[1] {
			case activities.FieldCompleted:
				now = !cur.Value.Completed
				req.Completed = nullable.NewNullableWithValue(now)
			case activities.FieldConfirmed:
				now = !cur.Value.Confirmed
				req.Confirmed = nullable.NewNullableWithValue(now)
			default:
				return fmt.Errorf("field must be %s or %s", activities.FieldCompleted, activities.FieldConfirmed)
			}
			if err := c.UpdateActivity(cmd.Context(), args[0], req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s=%v\n", cur.Value.Name, args[1], now)
			return nil
		}),
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an activity you suggested",
		Args:  cobra.ExactArgs(1),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.DeleteActivity(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(list, add, toggle, rm)
	return cmd
}

func newGameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Truth or dare",
	}
	kinds := []string{string(domain.QuestionTruth), string(domain.QuestionDare)}

	draw := &cobra.Command{
		Use:       "draw <truth|dare>",
		Short:     "Draw a random question",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			q, err := c.Draw(cmd.Context(), domain.QuestionKind(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q.Text)
			return nil
		}),
	}

	add := &cobra.Command{
		Use:       "add <truth|dare> <text...>",
		Short:     "Add a custom question",
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: kinds,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			id, err := c.AddQuestion(cmd.Context(), domain.QuestionKind(args[0]), strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			printCreated(cmd, id)
			return nil
		}),
	}

	list := &cobra.Command{
		Use:       "list <truth|dare>",
		Short:     "List custom questions",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			recs, err := c.Questions(cmd.Context(), domain.QuestionKind(args[0]))
			if err != nil {
				return err
			}
			tw := table(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tBY\tTEXT")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Value.AuthorName, r.Value.Text)
			}
			return tw.Flush()
		}),
	}

	rm := &cobra.Command{
		Use:   "rm <truth|dare> <id>",
		Short: "Delete a custom question you added",
		Args:  cobra.ExactArgs(2),
		RunE: authedRunE(a, func(cmd *cobra.Command, c *client.Client, _ domain.Actor, args []string) error {
			return c.DeleteQuestion(cmd.Context(), domain.QuestionKind(args[0]), args[1])
		}),
	}

	cmd.AddCommand(draw, add, list, rm)
	return cmd
}

func check(b bool) string {
	if b {
		return "x"
	}
	return "-"
}

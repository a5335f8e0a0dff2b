package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/app"
	"github.com/netfile/campaign-sync/internal/subscription"
	"github.com/netfile/campaign-sync/internal/syncer"
)

func subscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Manage the sync subscription of a target",
	}

	cmd.AddCommand(subscriptionCreateCmd())
	cmd.AddCommand(subscriptionShowCmd())
	cmd.AddCommand(subscriptionPeekCmd())
	cmd.AddCommand(subscriptionListCmd())
	cmd.AddCommand(subscriptionCancelCmd())

	return cmd
}

// withSubscriptions runs fn with the subscription manager of the selected target.
func withSubscriptions(fn func(a *app.App, t syncer.Target, mgr *subscription.Manager) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	t, err := selectTarget(a)
	if err != nil {
		return err
	}
	return fn(a, t, a.Subscriptions(t))
}

// subscriptionID returns args[0] or the stored id of the target.
func subscriptionID(cmd *cobra.Command, t syncer.Target, mgr *subscription.Manager, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	id, err := mgr.Stored(cmd.Context(), t.Subscription.StoreKey)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("no subscription stored under %s", t.Subscription.StoreKey)
	}
	return id, nil
}

func subscriptionCreateCmd() *cobra.Command {
	var (
		name    string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and record a subscription for the target",
		Long: `Create a subscription with the target's feed and filters and record its
id in the subscription store. An already recorded subscription is reused
unless --replace is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptions(func(_ *app.App, t syncer.Target, mgr *subscription.Manager) error {
				ctx := cmd.Context()
				spec := t.Subscription
				if name != "" {
					spec.Name = name
				}
				if replace {
					if err := mgr.Forget(ctx, spec.StoreKey); err != nil {
						return err
					}
				}
				id, err := mgr.Ensure(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Println(id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "subscription name (default: target subscription_name)")
	cmd.Flags().BoolVar(&replace, "replace", false, "forget the recorded subscription and create a new one")

	return cmd
}

func subscriptionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [SUBSCRIPTION_ID]",
		Short: "Show a subscription (default: the recorded one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptions(func(_ *app.App, t syncer.Target, mgr *subscription.Manager) error {
				id, err := subscriptionID(cmd, t, mgr, args)
				if err != nil {
					return err
				}
				sub, err := mgr.Fetch(cmd.Context(), id)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sub)
			})
		},
	}
}

func subscriptionPeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peek [SUBSCRIPTION_ID]",
		Short: "Check whether a subscription has data to sync",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptions(func(_ *app.App, t syncer.Target, mgr *subscription.Manager) error {
				id, err := subscriptionID(cmd, t, mgr, args)
				if err != nil {
					return err
				}
				available, err := mgr.Peek(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Printf("%s data available: %t\n", id, available)
				return nil
			})
		},
	}
}

func subscriptionListCmd() *cobra.Command {
	var feedID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptions(func(_ *app.App, _ syncer.Target, mgr *subscription.Manager) error {
				subs, err := mgr.List(cmd.Context(), feedID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tFEED\tSTATUS")
				for _, s := range subs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.FeedName, s.Status)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&feedID, "feed-id", "", "only list subscriptions of this feed")

	return cmd
}

func subscriptionCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel SUBSCRIPTION_ID",
		Short: "Cancel a subscription (irreversible)",
		Long: `Cancel a subscription. If it is the subscription recorded for the
target, the recorded id is removed so the next sync creates a new one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSubscriptions(func(_ *app.App, t syncer.Target, mgr *subscription.Manager) error {
				ctx := cmd.Context()
				id := args[0]
				if err := mgr.Cancel(ctx, id); err != nil {
					return err
				}
				stored, err := mgr.Stored(ctx, t.Subscription.StoreKey)
				if err != nil {
					return err
				}
				if stored == id {
					logger.Info("removing recorded subscription", zap.String("key", t.Subscription.StoreKey))
					return mgr.Forget(ctx, t.Subscription.StoreKey)
				}
				return nil
			})
		},
	}
}

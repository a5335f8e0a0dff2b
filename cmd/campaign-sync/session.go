package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/session"
	"github.com/netfile/campaign-sync/internal/topic"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open or terminate sync sessions",
	}

	cmd.AddCommand(sessionOpenCmd())
	cmd.AddCommand(sessionCommandCmd("complete", "Complete a drained session", (*session.Controller).Complete))
	cmd.AddCommand(sessionCommandCmd("cancel", "Cancel a session so its data is delivered again", (*session.Controller).Cancel))

	return cmd
}

func sessionOpenCmd() *cobra.Command {
	var rangeLimit int

	cmd := &cobra.Command{
		Use:   "open SUBSCRIPTION_ID",
		Short: "Open a sync session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			t, err := selectTarget(a)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("range-limit") {
				rangeLimit = t.RangeLimit
			}

			ctrl := session.NewController(a.Campaign(t.Scope), logger)
			s, err := ctrl.Open(cmd.Context(), args[0], rangeLimit)
			if err != nil {
				return err
			}
			if s.ID() == "" {
				fmt.Println("no sync data available")
				return nil
			}
			fmt.Printf("%s data available: %t\n", s.ID(), s.DataAvailable())
			return nil
		},
	}

	cmd.Flags().IntVar(&rangeLimit, "range-limit", 0, "sequence range limit (default: target range_limit)")

	return cmd
}

type sessionTransition func(c *session.Controller, ctx context.Context, s *session.Session) error

func sessionCommandCmd(use, short string, transition sessionTransition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SESSION_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			t, err := selectTarget(a)
			if err != nil {
				return err
			}

			ctrl := session.NewController(a.Campaign(t.Scope), logger)
			return transition(ctrl, cmd.Context(), ctrl.Resume(args[0]))
		},
	}
}

func syncTopicCmd() *cobra.Command {
	var (
		pageSize int
		complete bool
	)

	cmd := &cobra.Command{
		Use:   "sync-topic SESSION_ID TOPIC",
		Short: "Read one topic of an open session and print its records",
		Long: `Read every page of a topic within an already open session and write the
records to stdout as JSON lines. Progress is logged to stderr.

Examples:
  # Read filing activities and complete the session afterwards
  campaign-sync sync-topic --complete 6d1a... filing-activities > filings.jsonl`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			t, err := selectTarget(a)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("page-size") {
				pageSize = t.PageSize
			}

			campaign := a.Campaign(t.Scope)
			ctrl := session.NewController(campaign, logger)
			s := ctrl.Resume(args[0])

			out := bufio.NewWriter(os.Stdout)
			reader := topic.NewPaginator(campaign, logger).Read(s, args[1], pageSize)
			for page, err := range reader.All(ctx) {
				if err != nil {
					return err
				}
				first := page.FirstRecord()
				logger.Info("retrieved records",
					zap.Int("from", first),
					zap.Int("to", first+len(page.Results)-1),
					zap.Int("total", page.TotalCount),
				)
				for _, record := range page.Results {
					if _, err := out.Write(record); err != nil {
						return err
					}
					if err := out.WriteByte('\n'); err != nil {
						return err
					}
				}
			}
			if err := out.Flush(); err != nil {
				return err
			}

			logger.Info("topic synchronized",
				zap.String("topic", args[1]),
				zap.Int("pages", reader.Pages()),
				zap.Int("records", reader.Records()),
				zap.Duration("avg_request", reader.AverageRequest()),
			)

			if complete {
				return ctrl.Complete(ctx, s)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "records per page (default: target page_size)")
	cmd.Flags().BoolVar(&complete, "complete", false, "complete the session after the topic was read")

	return cmd
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func systemReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "system-report",
		Short: "Show the Campaign API system status",
		Args:  cobra.NoArgs,
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

			report, err := a.Campaign(t.Scope).SystemReport(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s\n", report.Name, report.GeneralStatus)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COMPONENT\tSTATUS\tVERSION\tBUILT\tMESSAGE")
			for _, c := range report.Components {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Status, c.BuildVersion, c.BuildDateTime, c.Message)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !report.Ready() {
				return fmt.Errorf("system status is %s", report.GeneralStatus)
			}
			return nil
		},
	}
}

func feedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feeds",
		Short: "List the available sync feeds and their topics",
		Args:  cobra.NoArgs,
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

			feeds, err := a.Campaign(t.Scope).Feeds(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTOPICS")
			for _, f := range feeds {
				topics := make([]string, 0, len(f.Topics))
				for _, tp := range f.Topics {
					topics = append(topics, tp.Name)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Name, strings.Join(topics, ","))
			}
			return w.Flush()
		},
	}
}

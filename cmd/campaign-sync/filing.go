package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/netfile/campaign-sync/internal/api"
)

func filingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filing",
		Short: "Look up filings and filing elements of the target's domain",
	}

	cmd.AddCommand(filingShowCmd())
	cmd.AddCommand(filingQueryCmd())
	cmd.AddCommand(filingElementCmd())
	cmd.AddCommand(filingElementsCmd())
	cmd.AddCommand(filingEfileCmd())

	return cmd
}

// withCampaign runs fn with the API client of the selected target.
func withCampaign(fn func(c *api.Campaign) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	t, err := selectTarget(a)
	if err != nil {
		return err
	}
	return fn(a.Campaign(t.Scope))
}

func printJSON(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = os.Stdout.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(os.Stdout)
	return err
}

func fetchCmd(use, short string, fetch func(c *api.Campaign, ctx context.Context, id string) (json.RawMessage, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCampaign(func(c *api.Campaign) error {
				raw, err := fetch(c, cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(raw)
			})
		},
	}
}

func filingShowCmd() *cobra.Command {
	return fetchCmd("show ROOT_FILING_ID", "Show a filing", (*api.Campaign).FetchFiling)
}

func filingElementCmd() *cobra.Command {
	return fetchCmd("element ELEMENT_ID", "Show a filing element", (*api.Campaign).FetchFilingElement)
}

func queryCmd(use, short string, elements bool) *cobra.Command {
	var q api.FilingQuery

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCampaign(func(c *api.Campaign) error {
				query := c.QueryFilings
				if elements {
					query = c.QueryFilingElements
				}
				raw, err := query(cmd.Context(), q)
				if err != nil {
					return err
				}
				return printJSON(raw)
			})
		},
	}

	cmd.Flags().StringVar(&q.Origin, "origin", "", "Filing origin")
	cmd.Flags().StringVar(&q.FilingID, "filing-id", "", "Filing id")
	if elements {
		cmd.Flags().StringVar(&q.ElementClassification, "element-classification", "", "Element classification")
		cmd.Flags().StringVar(&q.ElementType, "element-type", "", "Element type")
	} else {
		cmd.Flags().StringVar(&q.FilingSpecification, "specification", "", "Filing specification")
	}
	cmd.Flags().IntVar(&q.Limit, "limit", 100, "Page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Page offset")

	return cmd
}

func filingQueryCmd() *cobra.Command {
	return queryCmd("query", "Query filings", false)
}

func filingElementsCmd() *cobra.Command {
	return queryCmd("elements", "Query filing elements", true)
}

func filingEfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "efile ROOT_FILING_ID",
		Short: "Write the e-filing document of a filing to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCampaign(func(c *api.Campaign) error {
				content, err := c.FetchEfileContent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(content)
				return err
			})
		},
	}
}

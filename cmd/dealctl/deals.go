package main

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"dealflow/internal/apiclient"
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Create, list, inspect, archive and delete deals",
}

var (
	createKind string
	createURL  string

	listStatus string
	listTenant string
	listMarket string
	listLimit  int
	listOffset int
)

var dealsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a draft deal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		req := apiclient.CreateDealRequest{Name: args[0], SourceKind: createKind}
		if u := strings.TrimSpace(createURL); u != "" {
			req.SourceURL = &u
		}
		deal, err := newClient().CreateDeal(ctx, req)
		if err != nil {
			return err
		}
		return Write(os.Stdout, Format(outputFormat), deal)
	},
}

var dealsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deals, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		items, total, err := newClient().ListDeals(ctx, apiclient.ListDealsRequest{
			Status: listStatus,
			Tenant: listTenant,
			Market: listMarket,
			Limit:  listLimit,
			Offset: listOffset,
		})
		if err != nil {
			return err
		}
		if Format(outputFormat) == FormatText {
			if err := Write(os.Stdout, FormatText, items); err != nil {
				return err
			}
			cmd.Printf("\n%d of %d\n", len(items), total)
			return nil
		}
		return Write(os.Stdout, Format(outputFormat), map[string]any{"items": items, "total": total})
	},
}

var dealsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a deal with every artifact produced so far",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		deal, err := newClient().GetDeal(ctx, args[0])
		if err != nil {
			return err
		}
		return Write(os.Stdout, Format(outputFormat), deal)
	},
}

var dealsArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Archive a deal; archived deals reject further stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		deal, err := newClient().ArchiveDeal(ctx, args[0])
		if err != nil {
			return err
		}
		return Write(os.Stdout, Format(outputFormat), deal)
	},
}

var deleteYes bool

var dealsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a deal and all of its artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteYes {
			return errors.New("refusing to delete without --yes")
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := newClient().DeleteDeal(ctx, args[0]); err != nil {
			return err
		}
		cmd.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	dealsCreateCmd.Flags().StringVar(&createKind, "source", "document", "source kind: document, link or manual")
	dealsCreateCmd.Flags().StringVar(&createURL, "url", "", "listing URL for link deals")

	dealsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	dealsListCmd.Flags().StringVar(&listTenant, "tenant", "", "filter by tenant name substring")
	dealsListCmd.Flags().StringVar(&listMarket, "market", "", "filter by submarket substring")
	dealsListCmd.Flags().IntVar(&listLimit, "limit", 50, "page size")
	dealsListCmd.Flags().IntVar(&listOffset, "offset", 0, "page offset")

	dealsDeleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "confirm deletion")

	dealsCmd.AddCommand(dealsCreateCmd, dealsListCmd, dealsGetCmd, dealsArchiveCmd, dealsDeleteCmd)
}

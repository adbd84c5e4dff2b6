package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mwantia/sessionbrowser/internal/agent"
	"github.com/mwantia/sessionbrowser/pkg/browser"
)

func NewPrefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Manage browser preferences",
		Long:  "Show or change the visible columns and their widths for the configured browser.role.",
	}

	cmd.AddCommand(NewPrefsGetCommand())
	cmd.AddCommand(NewPrefsSetCommand())

	return cmd
}

func NewPrefsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the column layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(func(ctx context.Context, a *agent.SessionBrowserAgent) error {
				prefs, err := a.Services().Browser.Columns(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, col := range prefs.Visible {
					if w, ok := prefs.Widths[col]; ok {
						fmt.Fprintf(out, "%s\t%d\n", col, w)
					} else {
						fmt.Fprintf(out, "%s\n", col)
					}
				}
				return nil
			})
		},
	}
}

func NewPrefsSetCommand() *cobra.Command {
	var widths []string

	cmd := &cobra.Command{
		Use:   "set <column>...",
		Short: "Store the visible columns in display order",
		Long: `Store the visible columns in display order.

Available columns: name, patient_id, patient_name, therapist, session_date,
size, size_category, created_at, notes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := parseColumns(args, widths)
			if err != nil {
				return err
			}

			return withAgent(func(ctx context.Context, a *agent.SessionBrowserAgent) error {
				if err := a.Services().Browser.SaveColumns(ctx, prefs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %d columns\n", len(prefs.Visible))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&widths, "width", nil, "column width as column=width, repeatable")

	return cmd
}

func parseColumns(args, widths []string) (browser.ColumnPreferences, error) {
	prefs := browser.ColumnPreferences{}
	for _, arg := range args {
		for _, col := range strings.Split(arg, ",") {
			if col = strings.TrimSpace(col); col != "" {
				prefs.Visible = append(prefs.Visible, browser.Column(strings.ToLower(col)))
			}
		}
	}

	for _, w := range widths {
		col, value, ok := strings.Cut(w, "=")
		if !ok {
			return prefs, fmt.Errorf("invalid --width '%s' (expected column=width)", w)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return prefs, fmt.Errorf("invalid --width '%s': %w", w, err)
		}
		if prefs.Widths == nil {
			prefs.Widths = map[browser.Column]int{}
		}
		prefs.Widths[browser.Column(strings.ToLower(strings.TrimSpace(col)))] = n
	}
	return prefs, nil
}

package client

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mwantia/sessionbrowser/internal/agent"
	config "github.com/mwantia/sessionbrowser/internal/config/server"
	"github.com/mwantia/sessionbrowser/pkg/query"
	"github.com/mwantia/sessionbrowser/pkg/records"
)

func NewFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Browse recorded session files",
		Long:  "List, filter and download recorded session files from the configured storage.",
	}

	cmd.AddCommand(NewFilesListCommand())
	cmd.AddCommand(NewFilesGetCommand())
	cmd.AddCommand(NewFilesVerifyCommand())
	cmd.AddCommand(NewFilesOptionsCommand())

	return cmd
}

// withAgent sets up the services without starting the refresh loop.
func withAgent(fn func(ctx context.Context, a *agent.SessionBrowserAgent) error) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	ctx := context.Background()
	a := agent.NewAgent(cfg)
	if err := a.Setup(ctx); err != nil {
		return err
	}
	defer a.Close(ctx)

	return fn(ctx, a)
}

// load lists recordings and waits for the auxiliary data.
func load(ctx context.Context, a *agent.SessionBrowserAgent) error {
	ctrl := a.Services().Browser
	if err := ctrl.Load(ctx); err != nil {
		if hint := records.Remediation(err); hint != "" {
			return fmt.Errorf("%w\nhint: %s", err, hint)
		}
		return err
	}
	ctrl.Wait()
	return nil
}

type listOptions struct {
	search      string
	patientID   string
	patientName string
	therapist   string
	size        string
	notes       string
	dateFrom    string
	dateTo      string
	timeFrom    string
	timeTo      string
	sort        string
	order       string
	page        int
	human       bool
}

func (o listOptions) filters() (query.Filters, error) {
	f := query.Filters{
		Search:       o.search,
		PatientID:    o.patientID,
		PatientName:  o.patientName,
		Therapist:    o.therapist,
		SizeCategory: records.SizeCategory(strings.ToLower(o.size)),
		Notes:        query.NotesFilter(strings.ToLower(o.notes)),
	}

	switch f.SizeCategory {
	case "", records.SizeSmall, records.SizeMedium, records.SizeLarge:
	default:
		return f, fmt.Errorf("invalid --size '%s' (expected small, medium or large)", o.size)
	}
	switch f.Notes {
	case query.NotesAny, query.NotesWith, query.NotesWithout:
	default:
		return f, fmt.Errorf("invalid --notes '%s' (expected with or without)", o.notes)
	}

	var err error
	if f.DateFrom, err = parseDate(o.dateFrom); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate(o.dateTo); err != nil {
		return f, err
	}
	if f.TimeFrom, err = parseTime(o.timeFrom); err != nil {
		return f, err
	}
	if f.TimeTo, err = parseTime(o.timeTo); err != nil {
		return f, err
	}
	return f, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date '%s' (expected YYYY-MM-DD): %w", s, err)
	}
	return &t, nil
}

func parseTime(s string) (*query.TimeOfDay, error) {
	if s == "" {
		return nil, nil
	}
	t, err := query.ParseTimeOfDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func NewFilesListCommand() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List recordings",
		Long:  "List recordings with the configured role's columns. Filters combine with AND; the page is 1-based.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := opts.filters()
			if err != nil {
				return err
			}

			return withAgent(func(ctx context.Context, a *agent.SessionBrowserAgent) error {
				ctrl := a.Services().Browser
				if err := load(ctx, a); err != nil {
					return err
				}

				ctrl.SetFilters(filters)
				if opts.sort != "" {
					spec, err := query.ParseSortSpec(opts.sort, opts.order)
					if err != nil {
						return err
					}
					ctrl.SetSort(spec)
				}
				ctrl.SetPage(opts.page)

				prefs, err := ctrl.Columns(ctx)
				if err != nil {
					return err
				}
				return renderPage(cmd.OutOrStdout(), ctrl.Current(), prefs, opts.human)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.search, "search", "s", "", "match file or patient name (case-insensitive)")
	flags.StringVar(&opts.patientID, "patient-id", "", "exact patient code, e.g. P005")
	flags.StringVar(&opts.patientName, "patient-name", "", "patient name substring")
	flags.StringVar(&opts.therapist, "therapist", "", "exact therapist display name")
	flags.StringVar(&opts.size, "size", "", "size category (small, medium, large)")
	flags.StringVar(&opts.notes, "notes", "", "note presence (with, without)")
	flags.StringVar(&opts.dateFrom, "date-from", "", "first session day (YYYY-MM-DD)")
	flags.StringVar(&opts.dateTo, "date-to", "", "last session day (YYYY-MM-DD)")
	flags.StringVar(&opts.timeFrom, "time-from", "", "earliest session time of day (HH:MM)")
	flags.StringVar(&opts.timeTo, "time-to", "", "latest session time of day (HH:MM)")
	flags.StringVar(&opts.sort, "sort", "", "sort field (default depends on browser.role)")
	flags.StringVar(&opts.order, "order", "asc", "sort direction (asc, desc)")
	flags.IntVarP(&opts.page, "page", "p", 1, "page number")
	flags.BoolVarP(&opts.human, "human", "H", false, "human-readable sizes and dates")

	return cmd
}

func NewFilesGetCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Download a recording",
		Long:  "Select a listed recording and download it to the current directory or --output.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return withAgent(func(ctx context.Context, a *agent.SessionBrowserAgent) error {
				ctrl := a.Services().Browser
				if err := load(ctx, a); err != nil {
					return err
				}

				if err := ctrl.SelectRecord(name, nil, nil); err != nil {
					return err
				}

				data, err := ctrl.Download(ctx, name)
				if err != nil {
					return err
				}

				target := output
				if target == "" {
					target = path.Base(name)
				}
				if err := os.WriteFile(target, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", target, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%s) to %s\n", name, humanize.Bytes(uint64(len(data))), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file")

	return cmd
}

func NewFilesVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check access to the configured storage",
		Long:  "Perform a single listing attempt without retries and report how many recordings are visible.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(func(ctx context.Context, a *agent.SessionBrowserAgent) error {
				count, err := a.Services().Browser.VerifyAccess(ctx)
				if err != nil {
					return fmt.Errorf("access check failed: %w\nhint: %s", err, records.Remediation(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Storage is reachable, %d recordings visible\n", count)
				return nil
			})
		},
	}
}

func NewFilesOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List values available to the categorical filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAgent(func(ctx context.Context, a *agent.SessionBrowserAgent) error {
				ctrl := a.Services().Browser
				if err := load(ctx, a); err != nil {
					return err
				}

				opts := ctrl.Options()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Patient IDs:   %s\n", strings.Join(opts.PatientIDs, ", "))
				fmt.Fprintf(out, "Patient names: %s\n", strings.Join(opts.PatientNames, ", "))
				fmt.Fprintf(out, "Therapists:    %s\n", strings.Join(opts.Therapists, ", "))
				return nil
			})
		},
	}
}

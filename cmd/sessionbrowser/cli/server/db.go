package server

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	config "github.com/mwantia/sessionbrowser/internal/config/server"
	"github.com/mwantia/sessionbrowser/pkg/db/migrations"
	"github.com/mwantia/sessionbrowser/pkg/db/models"
	"github.com/mwantia/sessionbrowser/pkg/db/store"
)

func NewDatabaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the metadata database",
		Long:  "Apply or roll back schema migrations and maintain therapists, patients, sessions and notes.",
	}

	cmd.AddCommand(newDatabaseMigrateCommand())
	cmd.AddCommand(newDatabaseStatusCommand())
	cmd.AddCommand(newDatabaseRollbackCommand())
	cmd.AddCommand(newDatabaseTherapistCommand())
	cmd.AddCommand(newDatabasePatientCommand())
	cmd.AddCommand(newDatabaseSessionCommand())
	cmd.AddCommand(newDatabaseNoteCommand())

	return cmd
}

// withStore opens the configured SQLite database without migrating it.
func withStore(fn func(ctx context.Context, st *store.SQLiteStore) error) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Metadata.SQLite.Path})
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect metadata store: %w", err)
	}
	return fn(ctx, st)
}

func newDatabaseMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				m := migrations.NewMigrator(st.DB())
				n, err := m.Migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Applied %d migrations, schema is at version %d\n", n, m.Latest())
				return nil
			})
		},
	}
}

func newDatabaseStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				statuses, err := migrations.NewMigrator(st.DB()).Status(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tDESCRIPTION\tAPPLIED")
				for _, s := range statuses {
					applied := "pending"
					if s.Applied {
						applied = s.AppliedAt.Local().Format(time.DateTime)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\n", s.Version, s.Description, applied)
				}
				return w.Flush()
			})
		},
	}
}

func newDatabaseRollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				version, err := migrations.NewMigrator(st.DB()).Rollback(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Rolled back migration %d\n", version)
				return nil
			})
		},
	}
}

func newDatabaseTherapistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "therapist",
		Short: "Manage therapists",
	}

	var first, last, display, short string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a therapist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				t := &models.Therapist{FirstName: first, LastName: last, DisplayName: display, ShortCode: short}
				if err := st.CreateTherapist(ctx, t); err != nil {
					return fmt.Errorf("failed to create therapist: %w", err)
				}
				fmt.Printf("Created therapist %d\n", t.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&first, "first-name", "", "given name")
	add.Flags().StringVar(&last, "last-name", "", "family name")
	add.Flags().StringVar(&display, "display-name", "", "name shown in the browser")
	add.Flags().StringVar(&short, "short-code", "", "short code, e.g. initials")

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List therapists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				therapists, err := st.ListTherapists(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tDISPLAY\tFIRST\tLAST\tCODE")
				for _, t := range therapists {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.DisplayName, t.FirstName, t.LastName, t.ShortCode)
				}
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(add, ls)
	return cmd
}

func newDatabasePatientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Manage patients",
	}

	var first, last string
	add := &cobra.Command{
		Use:   "add <code>",
		Short: "Create a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				p := &models.Patient{Code: args[0], FirstName: first, LastName: last}
				if err := st.CreatePatient(ctx, p); err != nil {
					return fmt.Errorf("failed to create patient: %w", err)
				}
				fmt.Printf("Created patient %s\n", p.Code)
				return nil
			})
		},
	}
	add.Flags().StringVar(&first, "first-name", "", "given name")
	add.Flags().StringVar(&last, "last-name", "", "family name")

	assign := &cobra.Command{
		Use:   "assign <code> <therapist-id>",
		Short: "Assign a therapist to a patient",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid therapist id '%s': %w", args[1], err)
			}
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				return st.AssignTherapist(ctx, args[0], uint(id))
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <code>",
		Short: "Show a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				p, err := st.GetPatient(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get patient %s: %w", args[0], err)
				}

				therapist := "-"
				if p.Therapist != nil {
					therapist = fmt.Sprintf("%d (%s)", p.Therapist.ID, p.Therapist.DisplayName)
				}
				fmt.Printf("Code:      %s\nName:      %s %s\nTherapist: %s\n", p.Code, p.FirstName, p.LastName, therapist)
				return nil
			})
		},
	}

	cmd.AddCommand(add, assign, show)
	return cmd
}

func newDatabaseSessionCommand() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "session <path>",
		Short: "Record the session time of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at value '%s' (expected RFC 3339): %w", at, err)
			}
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				return st.UpsertSession(ctx, &models.Session{FilePath: args[0], SessionTimestamp: &ts})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "session time in RFC 3339")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func newDatabaseNoteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes attached to recordings",
	}

	var author string
	add := &cobra.Command{
		Use:   "add <path> <text>",
		Short: "Attach a note to a recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				note := &models.Note{FilePath: args[0], Author: author, Body: args[1]}
				if err := st.CreateNote(ctx, note); err != nil {
					return fmt.Errorf("failed to create note: %w", err)
				}
				fmt.Printf("Created note %d\n", note.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&author, "author", "", "note author")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid note id '%s': %w", args[0], err)
			}
			return withStore(func(ctx context.Context, st *store.SQLiteStore) error {
				return st.DeleteNote(ctx, uint(id))
			})
		},
	}

	cmd.AddCommand(add, rm)
	return cmd
}

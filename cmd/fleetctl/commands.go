package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iliyamo/fleet-management/internal/app"
	"github.com/iliyamo/fleet-management/internal/config"
	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/queue"
	"github.com/iliyamo/fleet-management/internal/report"
	"github.com/iliyamo/fleet-management/internal/repository"
)

// withApp loads the configuration and runs fn with a ready App that is
// closed afterwards. Interrupts cancel ctx.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, d, err := app.OpenDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db, d); err != nil {
				return err
			}
			fmt.Printf("✓ Schema up to date (%s)\n", d.Name)
			return nil
		},
	}
}

func fuelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuel",
		Short: "Inspect and adjust the fuel ledger",
	}

	stock := &cobra.Command{
		Use:   "stock",
		Short: "Show the depot balance",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				s, err := a.Fleet.Ledger.Stock(ctx)
				if err != nil {
					return err
				}
				replenished, dispensed, err := a.Fleet.Ledger.Totals(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "Balance\t%s L\n", s.TotalQuantity.StringFixed(2))
				fmt.Fprintf(w, "Alert threshold\t%s L\n", s.AlertThreshold.StringFixed(2))
				fmt.Fprintf(w, "Replenished\t%s L\n", replenished.StringFixed(2))
				fmt.Fprintf(w, "Dispensed\t%s L\n", dispensed.StringFixed(2))
				if s.BelowThreshold() {
					fmt.Fprintln(w, "Status\tBELOW THRESHOLD")
				}
				return w.Flush()
			})
		},
	}

	replenish := &cobra.Command{
		Use:   "replenish [liters]",
		Short: "Record a delivery into the depot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[0])
			}
			as, _ := cmd.Flags().GetString("as")
			notes, _ := cmd.Flags().GetString("notes")
			day, _ := cmd.Flags().GetString("date")
			var date time.Time
			if day != "" {
				if date, err = time.ParseInLocation(model.DayLayout, day, time.Local); err != nil {
					return fmt.Errorf("date must be YYYY-MM-DD")
				}
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				actor, err := a.ActorByEmail(ctx, as)
				if err != nil {
					return err
				}
				var n *string
				if notes != "" {
					n = &notes
				}
				rep, err := a.Fleet.Replenish(ctx, actor, qty, date, n)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Replenishment %d: %s L on %s\n", rep.ID, rep.Quantity.StringFixed(2), rep.SuppliedOn.Format(model.DayLayout))
				return nil
			})
		},
	}
	replenish.Flags().String("as", "", "email of the admin or manager recording the delivery")
	replenish.Flags().String("notes", "", "free text notes")
	replenish.Flags().String("date", "", "delivery day (YYYY-MM-DD, default today)")
	_ = replenish.MarkFlagRequired("as")

	export := &cobra.Command{
		Use:   "export [file.xlsx]",
		Short: "Write the ledger to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			dr, err := parseRange(from, to)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				l, err := report.Collect(ctx, a.Fleet.Ledger, dr, a.Fleet.Now())
				if err != nil {
					return err
				}
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := report.WriteLedger(f, l); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Printf("✓ Wrote %s (%d replenishments, %d dispensings, %d daily reports)\n",
					args[0], len(l.Replenishments), len(l.Dispensings), len(l.DailyReports))
				return nil
			})
		},
	}
	export.Flags().String("from", "", "first day (YYYY-MM-DD)")
	export.Flags().String("to", "", "last day (YYYY-MM-DD)")

	cmd.AddCommand(stock, replenish, export)
	return cmd
}

func assignmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assignment",
		Short: "Manage vehicle assignments",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List active assignments",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				list, err := a.Fleet.Registry.List(ctx, repository.AssignmentFilter{ActiveOnly: true})
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tUSER\tVEHICLE\tSITE\tSINCE")
				for _, as := range list {
					fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", as.ID, as.UserID, as.Vehicle, as.SiteLabel,
						as.StartDate.Format(model.DayLayout))
				}
				return w.Flush()
			})
		},
	}

	deactivate := &cobra.Command{
		Use:   "deactivate [id]",
		Short: "End an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid assignment id %q", args[0])
			}
			as, _ := cmd.Flags().GetString("as")
			return withApp(func(ctx context.Context, a *app.App) error {
				actor, err := a.ActorByEmail(ctx, as)
				if err != nil {
					return err
				}
				asg, err := a.Fleet.DeactivateAssignment(ctx, actor, id)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Assignment %d inactive\n", asg.ID)
				return nil
			})
		},
	}
	deactivate.Flags().String("as", "", "email of the admin or manager ending the assignment")
	_ = deactivate.MarkFlagRequired("as")

	cmd.AddCommand(list, deactivate)
	return cmd
}

func notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Work with office notifications",
	}
	consume := &cobra.Command{
		Use:   "consume",
		Short: "Store notification events from RabbitMQ until interrupted",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if a.Cfg.RabbitURL == "" {
					return errors.New("RABBITMQ_URL is not set")
				}
				c := queue.NewConsumer(a.Cfg.RabbitURL, a.Notifications, a.Logger)
				a.Logger.Info("consuming", slog.String("queue", queue.NotificationQueue))
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
	cmd.AddCommand(consume)
	return cmd
}

func tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain refresh tokens",
	}
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete refresh tokens that expired or were revoked long enough ago",
		RunE: func(cmd *cobra.Command, _ []string) error {
			grace, _ := cmd.Flags().GetDuration("grace")
			return withApp(func(ctx context.Context, a *app.App) error {
				n, err := a.Tokens.PurgeExpired(ctx, time.Now().Add(-grace))
				if err != nil {
					return err
				}
				fmt.Printf("✓ Purged %d refresh tokens\n", n)
				return nil
			})
		},
	}
	purge.Flags().Duration("grace", 24*time.Hour, "keep tokens that ended within this window")
	cmd.AddCommand(purge)
	return cmd
}

func parseRange(from, to string) (repository.DateRange, error) {
	var dr repository.DateRange
	var err error
	if from != "" {
		if dr.From, err = time.ParseInLocation(model.DayLayout, from, time.Local); err != nil {
			return dr, errors.New("--from must be YYYY-MM-DD")
		}
	}
	if to != "" {
		if dr.To, err = time.ParseInLocation(model.DayLayout, to, time.Local); err != nil {
			return dr, errors.New("--to must be YYYY-MM-DD")
		}
	}
	return dr, nil
}

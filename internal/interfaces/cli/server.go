package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/route-scheduler/internal/application/usecases"
	"github.com/example/route-scheduler/internal/interfaces/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServerCmd(root *rootOptions) *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking API and the completion sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := openApp(ctx, root.configFile, appOptions{migrate: migrateUp})
			if err != nil {
				return err
			}
			defer a.Close()

			sweeper := &usecases.Sweeper{
				Store:    a.store,
				Interval: a.cfg.SweepInterval,
				Log:      a.log.Named("sweeper"),
			}
			go func() {
				if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.log.Error("sweeper stopped", zap.Error(err))
				}
			}()

			srv := web.New(a.bookings, a.cfg.AdminKeyHash, a.cfg.MaxRequestsPerMin, a.log.Named("http"))
			if len(srv.AdminKeyHash) == 0 {
				a.log.Warn("ADMIN_KEY_HASH not set, cancel/complete/delete endpoints are disabled")
			}
			return web.Start(ctx, a.cfg.HTTPAddr, srv.Routes(), a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(root.configFile)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			if err := a.openStore(cmd.Context(), appOptions{migrate: true}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations up to date")
			return nil
		},
	}
}

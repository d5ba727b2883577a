package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/route-scheduler/internal/infrastructure/geocache"
	"github.com/example/route-scheduler/internal/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func newPingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping [db|redis|geocoder] [address]",
		Short: "Check connectivity to a backing service",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			a, err := loadApp(root.configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "db":
				if a.cfg.DatabaseURL == "" {
					return errors.New("DATABASE_URL is not set")
				}
				pool, err := postgres.Open(ctx, a.cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := postgres.Ping(ctx, pool); err != nil {
					return err
				}
			case "redis":
				if a.cfg.RedisAddr == "" {
					return errors.New("REDIS_ADDR is not set")
				}
				client := geocache.NewRedisClient(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
				defer client.Close()
				if err := geocache.NewRedis(client, a.cfg.GeocacheTTL).Ping(ctx); err != nil {
					return err
				}
			case "geocoder":
				oracle, err := a.openOracle(ctx)
				if err != nil {
					return err
				}
				address := a.cfg.BaseName
				if len(args) == 2 {
					address = args[1]
				}
				loc, err := oracle.Resolve(ctx, address)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%q -> %.5f,%.5f %s\n", address, loc.Latitude, loc.Longitude, loc.FormattedAddress)
			default:
				return fmt.Errorf("unknown service: %s", args[0])
			}
			fmt.Fprintf(out, "%s: ok\n", args[0])
			return nil
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/example/route-scheduler/internal/domain/booking"
	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

// withApp opens the configured services for the duration of fn.
func withApp(cmd *cobra.Command, root *rootOptions, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	a, err := openApp(ctx, root.configFile, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

type requestFlags struct {
	customer    string
	address     string
	date        string
	time        string
	serviceType string
}

func (f *requestFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.customer, "customer", "", "customer name")
	c.Flags().StringVar(&f.address, "address", "", "service address")
	c.Flags().StringVar(&f.date, "date", "", "requested date YYYY-MM-DD")
	c.Flags().StringVar(&f.time, "time", "", "requested time HH:MM (optional)")
	c.Flags().StringVar(&f.serviceType, "service-type", "", "service type (optional)")
	_ = c.MarkFlagRequired("address")
	_ = c.MarkFlagRequired("date")
}

func (f *requestFlags) request() (booking.Request, error) {
	date, err := booking.ParseDate(f.date)
	if err != nil {
		return booking.Request{}, fmt.Errorf("invalid --date: %w", err)
	}
	req := booking.Request{Address: f.address, Date: date, ServiceType: f.serviceType}
	if f.time != "" {
		c, err := booking.ParseClock(f.time)
		if err != nil {
			return booking.Request{}, fmt.Errorf("invalid --time: %w", err)
		}
		req.Time = &c
	}
	return req, nil
}

func newValidateCmd(root *rootOptions) *cobra.Command {
	var f requestFlags
	c := &cobra.Command{
		Use:   "validate",
		Short: "Check whether a request fits the calendar without booking it",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				v := a.engine.Validate(ctx, req)
				if err := printJSON(cmd.OutOrStdout(), v); err != nil {
					return err
				}
				return v.Err()
			})
		},
	}
	f.bind(c)
	return c
}

func newBookCmd(root *rootOptions) *cobra.Command {
	var f requestFlags
	c := &cobra.Command{
		Use:   "book",
		Short: "Validate and persist a booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				v, b, err := a.bookings.Create(ctx, f.customer, req)
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), v, b)
			})
		},
	}
	f.bind(c)
	_ = c.MarkFlagRequired("customer")
	return c
}

func newScheduleCmd(root *rootOptions) *cobra.Command {
	var (
		customer, address, serviceType, start string
		book                                  bool
	)
	c := &cobra.Command{
		Use:   "schedule",
		Short: "Find the earliest feasible date and slot for an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			var preferred *time.Time
			if start != "" {
				d, err := booking.ParseDate(start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				preferred = &d
			}
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if book {
					res, b, err := a.bookings.ScheduleAndBook(ctx, customer, address, serviceType, preferred)
					if err != nil {
						return err
					}
					if b == nil {
						_ = printJSON(out, res)
						return fmt.Errorf("not booked: %s", res.Reason)
					}
					return printJSON(out, b)
				}

				res, token, err := a.bookings.Schedule(ctx, customer, address, serviceType, preferred)
				if err != nil {
					return err
				}
				if err := printJSON(out, res); err != nil {
					return err
				}
				if !res.Success {
					return fmt.Errorf("no slot: %s", res.Reason)
				}
				fmt.Fprintf(out, "hold token (valid %s): %s\n", a.bookings.Holds.TTL(), token)
				return nil
			})
		},
	}
	c.Flags().StringVar(&customer, "customer", "", "customer name")
	c.Flags().StringVar(&address, "address", "", "service address")
	c.Flags().StringVar(&serviceType, "service-type", "", "service type (optional)")
	c.Flags().StringVar(&start, "start", "", "earliest date to consider YYYY-MM-DD")
	c.Flags().BoolVar(&book, "book", false, "book the suggested slot immediately")
	_ = c.MarkFlagRequired("customer")
	_ = c.MarkFlagRequired("address")
	return c
}

func newConfirmCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <hold-token>",
		Short: "Book a slot previously suggested by schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				v, b, err := a.bookings.Confirm(ctx, args[0])
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), v, b)
			})
		},
	}
}

func printOutcome(w io.Writer, v booking.Verdict, b *booking.Booking) error {
	if b == nil {
		if err := printJSON(w, v); err != nil {
			return err
		}
		return fmt.Errorf("rejected: %s", v.Reason)
	}
	return printJSON(w, b)
}

func newBookingsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Inspect and manage stored bookings",
	}
	cmd.AddCommand(newBookingsListCmd(root))
	cmd.AddCommand(newBookingsActionCmd(root, "cancel", "Cancel a booking"))
	cmd.AddCommand(newBookingsActionCmd(root, "complete", "Mark a booking completed"))
	cmd.AddCommand(newBookingsActionCmd(root, "delete", "Delete a booking permanently"))
	return cmd
}

func newBookingsListCmd(root *rootOptions) *cobra.Command {
	var from, to string
	c := &cobra.Command{
		Use:   "list",
		Short: "List scheduled bookings in a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := booking.ParseDate(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end := start
			if to != "" {
				if end, err = booking.ParseDate(to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				bs, err := a.bookings.List(ctx, start, end)
				if err != nil {
					return err
				}
				writeBookings(cmd.OutOrStdout(), bs)
				return nil
			})
		},
	}
	c.Flags().StringVar(&from, "from", "", "first date YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "last date YYYY-MM-DD (default --from)")
	_ = c.MarkFlagRequired("from")
	return c
}

func newBookingsActionCmd(root *rootOptions, action, short string) *cobra.Command {
	var reason string
	c := &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				var err error
				switch action {
				case "cancel":
					err = a.bookings.Cancel(ctx, args[0], reason)
				case "complete":
					err = a.bookings.Complete(ctx, args[0])
				default:
					err = a.bookings.Delete(ctx, args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", action, args[0])
				return nil
			})
		},
	}
	if action == "cancel" {
		c.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	}
	return c
}

func newDayCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "Show a day's bookings, anchor and remaining capacity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := booking.ParseDate(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				day, err := a.bookings.Day(ctx, date)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "date=%s count=%d capacity=%d remaining=%d full=%t\n",
					booking.FormatDate(day.Date), day.Count, day.Capacity, day.Remaining(), day.IsFull)
				writeBookings(out, day.Bookings)
				return nil
			})
		},
	}
}

func writeBookings(w io.Writer, bs []booking.Booking) {
	for _, b := range bs {
		at := "--:--"
		if b.Time != nil {
			at = b.Time.String()
		}
		fmt.Fprintf(w, "id=%s date=%s time=%s anchor=%t customer=%q address=%q base_mi=%.1f\n",
			b.ID, b.DateString(), at, b.IsAnchor, b.CustomerName, b.Address, b.DistanceFromBase)
	}
}

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/serroba/analytics-eventqueue/internal/analytics"
	"github.com/spf13/cobra"
)

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <event>...",
		Short: "Append events to the queue",
		Long: `Append each argument as one event, in order. Events are stored as given, so
quote JSON payloads for the shell.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *analytics.PropertyEventStore) error {
				for i, arg := range args {
					if err := s.Put(cmd.Context(), analytics.Event(arg)); err != nil {
						if errors.Is(err, analytics.ErrStoreFull) {
							return fmt.Errorf("stored %d of %d events: %w", i, len(args), err)
						}

						return err
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "stored %d events\n", len(args))

				return nil
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored events without removing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *analytics.PropertyEventStore) error {
				it, err := s.Iterator(cmd.Context())
				if err != nil {
					return err
				}

				for n := 0; it.HasNext() && (limit <= 0 || n < limit); n++ {
					e, err := it.Next()
					if err != nil {
						return err
					}

					printEvent(cmd.OutOrStdout(), e)
				}

				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum events to print, 0 prints all")

	return cmd
}

func newDrainCmd(a *app) *cobra.Command {
	var (
		limit int
		keep  bool
	)

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Print the oldest events and remove them",
		Long: `Print up to --limit of the oldest events and remove exactly those from the queue.
With --keep the events are printed but stay queued.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *analytics.PropertyEventStore) error {
				it, err := s.Iterator(cmd.Context())
				if err != nil {
					return err
				}

				n := 0
				for ; it.HasNext() && (limit <= 0 || n < limit); n++ {
					e, err := it.Next()
					if err != nil {
						return err
					}

					printEvent(cmd.OutOrStdout(), e)
				}

				if keep {
					return nil
				}

				if err := it.RemoveReadEvents(cmd.Context()); err != nil {
					return err
				}

				fmt.Fprintf(cmd.ErrOrStderr(), "removed %d events\n", n)

				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum events to drain, 0 drains all")
	cmd.Flags().BoolVar(&keep, "keep", false, "print the events without removing them")

	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored events and their size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *analytics.PropertyEventStore) error {
				n, err := s.Len(cmd.Context())
				if err != nil {
					return err
				}

				size, err := s.Size(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%d events, %d bytes\n", n, size)

				return nil
			})
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored event of the client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *analytics.PropertyEventStore) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "cleared")

				return nil
			})
		},
	}
}

func printEvent(w io.Writer, e analytics.Event) {
	fmt.Fprintln(w, string(e))
}

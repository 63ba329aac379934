package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/adminstate/internal/guard"
)

var errToastNotFound = errors.New("toast not found")

func newToastsCmd(c *console) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toasts",
		Short: "Show or dismiss notifications",
	}
	cmd.AddCommand(newToastsListCmd(c), newToastsDismissCmd(c))
	return cmd
}

func newToastsListCmd(c *console) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.authorize(guard.HomePath); err != nil {
				return err
			}

			toasts := c.app.Toasts().List()
			if len(toasts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tMESSAGE")
			for _, t := range toasts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Type, t.Message)
			}
			return w.Flush()
		},
	}
}

func newToastsDismissCmd(c *console) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "dismiss [id]",
		Short: "Dismiss one notification, or all of them with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.authorize(guard.HomePath); err != nil {
				return err
			}

			if all {
				c.app.Toasts().Clear()
				fmt.Fprintln(cmd.OutOrStdout(), "All notifications dismissed")
				return nil
			}
			if !c.app.Toasts().Remove(args[0]) {
				return fmt.Errorf("%w: %s", errToastNotFound, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "dismiss every notification")
	return cmd
}

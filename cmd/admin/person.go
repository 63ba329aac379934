package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const personPath = "/person"

func newPersonCmd(c *console) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Manage person records",
	}
	cmd.AddCommand(
		newPersonListCmd(c),
		newPersonGetCmd(c),
		newPersonCreateCmd(c),
		newPersonDeleteCmd(c),
	)
	return cmd
}

func newPersonListCmd(c *console) *cobra.Command {
	var page, perPage int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of persons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.authorize(personPath); err != nil {
				return err
			}

			view := c.app.Persons()
			if err := view.LoadPage(cmd.Context(), page, perPage); err != nil {
				return err
			}
			meta, err := view.Meta()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL")
			for _, p := range view.List() {
				fmt.Fprintf(w, "%v\t%v\t%v\n", p["id"], p["name"], p["email"])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d total\n", meta.Page, meta.LastPage, meta.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "persons per page")
	return cmd
}

func newPersonGetCmd(c *console) *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := c.authorize(personPath + "/" + id); err != nil {
				return err
			}

			view := c.app.Persons()
			if err := view.Load(cmd.Context(), id); err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), view.Current())
		},
	}
}

func newPersonCreateCmd(c *console) *cobra.Command {
	var (
		name, email, phone, city, kind string
		active                         bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.authorize(personPath); err != nil {
				return err
			}

			view := c.app.Persons()
			if err := view.New(); err != nil {
				return err
			}

			fields := map[string]any{
				"name":  name,
				"email": email,
				"type":  kind,
			}
			if cmd.Flags().Changed("phone") {
				fields["phone"] = phone
			}
			if cmd.Flags().Changed("city") {
				fields["city"] = city
			}
			if cmd.Flags().Changed("active") {
				fields["active"] = active
			}
			for field, value := range fields {
				if err := view.Edit(field, value); err != nil {
					return err
				}
			}

			if err := view.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Person created: %v\n", view.Current()["id"])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&city, "city", "", "city")
	cmd.Flags().StringVar(&kind, "type", "", "person type (individual or company)")
	cmd.Flags().BoolVar(&active, "active", false, "mark the person active")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newPersonDeleteCmd(c *console) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := c.authorize(personPath + "/" + id); err != nil {
				return err
			}
			if err := c.app.Persons().Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Person deleted: %s\n", id)
			return nil
		},
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return enc.Close()
}

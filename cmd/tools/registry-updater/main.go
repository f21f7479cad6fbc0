// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"loan-agent/pkg/registry"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var path string

	root := &cobra.Command{
		Use:   "registry-updater",
		Short: "Inspect and edit the activity catalog",
		Long: `Maintains the catalog of tools and job types served by the tool server
and the worker manager. Without --path the embedded catalog is read.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&path, "path", "", "Path to a catalog file")

	load := func() (*registry.ActivityRegistry, error) {
		if path == "" {
			return registry.Default()
		}
		return registry.LoadRegistry(path)
	}
	requirePath := func() error {
		if path == "" {
			return errors.New("--path is required; the embedded catalog is read-only")
		}
		return nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := load()
			if err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(out, "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List activities with their tool names and task types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := load()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTOOL\tTASK TYPE\tSTATUS\tVERSION")
			for _, a := range reg.Activities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, dash(a.ToolName), dash(a.TaskType), a.ImplementationStatus, a.Version)
			}
			return tw.Flush()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the embedded catalog to --path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePath(); err != nil {
				return err
			}
			reg, err := registry.Default()
			if err != nil {
				return err
			}
			if err := reg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %d activities to %s\n", len(reg.Activities), path)
			return nil
		},
	})

	var activity registry.Activity
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a new activity to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePath(); err != nil {
				return err
			}
			if activity.ID == "" || activity.DisplayName == "" || activity.Category == "" {
				return errors.New("id, displayName and category are required")
			}
			reg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			a := activity
			a.InputSchema = map[string]interface{}{"type": "object"}
			a.OutputSchema = map[string]interface{}{"type": "object"}
			a.ErrorCodes = []string{}
			a.Tags = []string{}
			if err := reg.Add(a); err != nil {
				return err
			}
			if err := reg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "Added activity: %s\n", a.ID)
			return nil
		},
	}
	add.Flags().StringVar(&activity.ID, "id", "", "Activity ID (e.g. verify-w2)")
	add.Flags().StringVar(&activity.DisplayName, "displayName", "", "Display name")
	add.Flags().StringVar(&activity.Description, "description", "", "Description")
	add.Flags().StringVar(&activity.Category, "category", "", "Category (e.g. verification)")
	add.Flags().StringVar(&activity.TaskType, "taskType", "", "Zeebe job type")
	add.Flags().StringVar(&activity.ToolName, "toolName", "", "MCP tool name")
	add.Flags().StringVar(&activity.Version, "version", "0.1.0", "Version")
	add.Flags().StringVar(&activity.ImplementationStatus, "status", "planned", "Implementation status")
	add.Flags().StringVar(&activity.Timeout, "timeout", "10s", "Job timeout")
	root.AddCommand(add)

	var id, field, value string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update one field of an existing activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePath(); err != nil {
				return err
			}
			reg, err := load()
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Update(id, field, value); err != nil {
				return err
			}
			if err := reg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(out, "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	update.Flags().StringVar(&id, "id", "", "Activity ID to update")
	update.Flags().StringVar(&field, "field", "", "Field to update (status, version, timeout, retries, ...)")
	update.Flags().StringVar(&value, "value", "", "New value for the field")
	_ = update.MarkFlagRequired("id")
	_ = update.MarkFlagRequired("field")
	_ = update.MarkFlagRequired("value")
	root.AddCommand(update)

	return root
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// cmd/tools/worker-generator/main.go
package main

import (
	"fmt"
	"io"
	"os"

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
	var activityID, outputDir, registryPath string

	cmd := &cobra.Command{
		Use:   "worker-generator",
		Short: "Scaffold a Zeebe worker package for a catalog activity",
		Example: `  worker-generator --activity verify-w2
  worker-generator --activity verify-w2 --registry configs/catalog.json --output ./internal/workers`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Default()
			if registryPath != "" {
				reg, err = registry.LoadRegistry(registryPath)
			}
			if err != nil {
				return fmt.Errorf("load registry: %w", err)
			}

			var activity *registry.Activity
			for i := range reg.Activities {
				if reg.Activities[i].ID == activityID {
					activity = &reg.Activities[i]
					break
				}
			}
			if activity == nil {
				return fmt.Errorf("activity %q not found in registry", activityID)
			}

			written, err := Generate(*activity, outputDir)
			for _, path := range written {
				fmt.Fprintf(out, "Generated %s\n", path)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  1. Implement Execute in handler.go")
			fmt.Fprintln(out, "  2. Register the handler in cmd/worker-manager/main.go")
			fmt.Fprintln(out, "  3. Add a workers entry to configs/config.yaml")
			return nil
		},
	}

	cmd.Flags().StringVar(&activityID, "activity", "", "Activity ID from the catalog")
	cmd.Flags().StringVar(&outputDir, "output", "./internal/workers", "Output directory")
	cmd.Flags().StringVar(&registryPath, "registry", "", "Catalog file (default: embedded catalog)")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

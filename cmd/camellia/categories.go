package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func (c *cli) categoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect category resolution",
	}

	var taxonomyFile string
	resolve := &cobra.Command{
		Use:   "resolve <label>...",
		Short: "Print the taxonomy assignment for each raw label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()

			if taxonomyFile == "" {
				if err := a.connect(ctx, false); err != nil {
					return &exitError{code: exitFatal, err: err}
				}
			}
			resolver, err := a.resolver(ctx, taxonomyFile)
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			for _, label := range args {
				resolved := resolver.Resolve(label)
				err := enc.Encode(map[string]any{
					"label":    label,
					"resolved": resolved,
					"assigned": resolver.RepairParent(resolved),
				})
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	resolve.Flags().StringVar(&taxonomyFile, "taxonomy-file", "", "read the taxonomy from a YAML file instead of the store")

	cmd.AddCommand(resolve)
	return cmd
}

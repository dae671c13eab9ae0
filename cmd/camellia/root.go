package main

import (
	"github.com/spf13/cobra"
)

// cli owns the command tree and the app built for whichever command runs.
type cli struct {
	envFile string
	app     *app
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "camellia",
		Short:         "Link crawled business listings into the directory record store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if c.envFile != "" {
				files = append(files, c.envFile)
			}
			a, err := newApp(cmd.Context(), files...)
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			c.app = a
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "env file to load before reading the environment (default .env)")

	root.AddCommand(
		c.ingestCommand(),
		c.promoteCommand(),
		c.reconcileCommand(),
		c.stageCommand(),
		c.migrateCommand(),
		c.serveCommand(),
		c.categoriesCommand(),
	)
	return root
}

func (c *cli) close() {
	if c.app != nil {
		c.app.close()
	}
}

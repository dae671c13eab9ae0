package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/camellia/pkg/database"
	perrors "github.com/Ramsey-B/camellia/pkg/errors"
)

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			if err := a.connect(cmd.Context(), false); err != nil {
				return &exitError{code: exitFatal, err: err}
			}

			pool, ok := database.Pool(a.db())
			if !ok {
				return &exitError{code: exitFatal, err: errors.New("database handle has no pool")}
			}

			migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
				MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
				DatabaseName:        a.cfg.DatabaseName,
				Version:             a.cfg.DatabaseMigrationVersion,
				Force:               a.cfg.DatabaseMigrationForce,
				AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
			})
			if err := migrations.Migrate(pool); err != nil {
				return &exitError{code: exitFatal, err: perrors.NewFatalError(perrors.FatalStore, err, "migration failed")}
			}
			return nil
		},
	}
}

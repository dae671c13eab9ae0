package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/camellia/internal/repositories/stagedlisting"
	perrors "github.com/Ramsey-B/camellia/pkg/errors"
	"github.com/Ramsey-B/camellia/pkg/sources"
)

const maxLineBytes = 4 << 20

type stageSummary struct {
	Read    int
	Staged  int
	Invalid int
}

func (c *cli) stageCommand() *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "stage <file.ndjson>",
		Short: "Load crawled listings into the staging table for a later promote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return &exitError{code: exitFatal, err: err}
			}
			defer f.Close()

			upsert := func(context.Context, stagedlisting.UpsertRequest) error { return nil }
			var repo *stagedlisting.Repository
			if live {
				if err := a.connect(ctx, false); err != nil {
					return &exitError{code: exitFatal, err: err}
				}
				repo = stagedlisting.NewRepository(a.db(), a.logger)
				upsert = repo.Upsert
			}

			summary, err := stageListings(ctx, f, upsert, a.logger)
			if err != nil {
				return &exitError{code: exitFatal, err: perrors.NewFatalError(perrors.FatalStore, err, "failed to stage listings")}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "read %d, staged %d, invalid %d\n", summary.Read, summary.Staged, summary.Invalid)
			if repo != nil {
				counts, err := repo.CountByStatus(ctx)
				if err != nil {
					return &exitError{code: exitFatal, err: err}
				}
				for _, count := range counts {
					fmt.Fprintf(out, "%s: %d\n", count.Status, count.Count)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "write to the staging table (default only validates the file)")
	return cmd
}

// stageListings decodes every NDJSON envelope in r and hands the valid ones to upsert. Invalid
// lines are counted and logged; an upsert failure stops the load.
func stageListings(ctx context.Context, r io.Reader, upsert func(context.Context, stagedlisting.UpsertRequest) error, logger ectologger.Logger) (stageSummary, error) {
	var summary stageSummary

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		summary.Read++

		rec, env, err := sources.Decode(raw)
		if err != nil {
			summary.Invalid++
			logger.WithContext(ctx).WithError(err).WithField("line", line).Warn("Skipping invalid listing")
			continue
		}

		key := rec.SourceID()
		err = upsert(ctx, stagedlisting.UpsertRequest{
			Kind:      string(env.Kind),
			Source:    key.Source,
			SourceUID: key.UID,
			Payload:   env.Data,
		})
		if err != nil {
			return summary, fmt.Errorf("line %d: %w", line, err)
		}
		summary.Staged++
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("failed to read listings: %w", err)
	}
	return summary, nil
}

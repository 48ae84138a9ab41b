package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/insurtree/internal/engine"
	"github.com/dgallion1/insurtree/internal/importer"
	"github.com/dgallion1/insurtree/internal/store/sqlstore"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "insurtree",
		Short:         "Rank insurance records by depth-bounded combined value",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newQueryCmd(), newMigrateCmd())
	return root
}

func newQueryCmd() *cobra.Command {
	var (
		file     string
		top      int
		depth    int
		dangling string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer a top-N query over a local records file without a server",
		Example: `  insurtree query --file insurances.csv --top 3 --depth 2
  insurtree query --file export.json --top 10 --depth 4 --dangling reject`,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := engine.ParseDanglingPolicy(dangling)
			if err != nil {
				return err
			}
			records, err := readRecords(file)
			if err != nil {
				return err
			}
			eng := engine.New(engine.WithWorkers(workers), engine.WithDanglingPolicy(policy))
			results, err := eng.Query(records, top, depth)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "records file (csv, json, txt, md, html, pdf, docx)")
	cmd.Flags().IntVarP(&top, "top", "n", 0, "maximum number of results")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "number of tree levels to combine, counting the node itself")
	cmd.Flags().StringVar(&dangling, "dangling", "root", "unresolved parent handling: root or reject")
	cmd.Flags().IntVar(&workers, "workers", 1, "aggregation workers")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("top")
	cmd.MarkFlagRequired("depth")
	return cmd
}

func readRecords(path string) ([]engine.Record, error) {
	p, err := importer.ForFile(path, importer.Options{FallbackPdftotext: true})
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := p.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func newMigrateCmd() *cobra.Command {
	var (
		engineName string
		uri        string
		target     int64
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to a postgres or sqlite record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			return sqlstore.MigrateURI(cmd.Context(), engineName, uri, target, log)
		},
	}
	cmd.Flags().StringVar(&engineName, "engine", sqlstore.EngineSQLite, "postgres or sqlite")
	cmd.Flags().StringVar(&uri, "uri", "", "database URI or sqlite path")
	cmd.Flags().Int64Var(&target, "target", 0, "schema version to migrate to (0 = latest)")
	cmd.MarkFlagRequired("uri")
	return cmd
}

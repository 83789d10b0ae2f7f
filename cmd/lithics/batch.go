package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/lithic-tools-mcp/internal/batch"
	"github.com/ironsheep/lithic-tools-mcp/internal/logging"
	"github.com/ironsheep/lithic-tools-mcp/internal/metadata"
	"github.com/ironsheep/lithic-tools-mcp/internal/store"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every image listed in a metadata file",
	Long: `Batch reads metadata.csv (image_id, scale_id, scale, optional scale_mm)
from the data directory and analyzes each listed image from its images
folder. Images whose header has no DPI are skipped.

Results are written to <output.dir>/surfaces.<format>, annotated copies to
<output.dir>/<image>_labeled.png and, when output.database is set, to a
SQLite database.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	f := batchCmd.Flags()
	f.StringP("data-dir", "d", ".", "directory holding metadata.csv and the images folder")
	f.String("meta", "", "metadata file (default: <data-dir>/metadata.csv)")
	f.Int("workers", -1, "number of parallel workers, 0 for one per CPU (overrides config)")
	f.String("database", "", "SQLite file for results (overrides config)")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	dataDir, _ := f.GetString("data-dir")
	metaPath, _ := f.GetString("meta")
	if metaPath == "" {
		metaPath = filepath.Join(dataDir, "metadata.csv")
	}
	if w, _ := f.GetInt("workers"); w >= 0 {
		cfg.Batch.Workers = w
	}
	if db, _ := f.GetString("database"); db != "" {
		cfg.Output.Database = db
	}

	entries, err := metadata.ReadFile(metaPath)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Output.Database != "" {
		dbPath := cfg.Output.Database
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(dataDir, dbPath)
		}
		if st, err = store.Open(dbPath); err != nil {
			return err
		}
		defer st.Close()
	}

	runner := batch.NewRunner(cfg, logging.Component(logger, "batch"), st)
	summary, err := runner.Run(cmd.Context(), dataDir, entries)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Images:    %d\n", summary.Total())
	fmt.Fprintf(out, "Processed: %d\n", summary.Processed)
	fmt.Fprintf(out, "Skipped:   %d\n", summary.Skipped)
	fmt.Fprintf(out, "Failed:    %d\n", summary.Failed)
	fmt.Fprintf(out, "Results:   %s\n", summary.ExportPath)
	for _, res := range summary.Results {
		if res.Status != batch.StatusProcessed {
			fmt.Fprintf(out, "  %s %s: %s\n", res.Status, res.ImageID, res.Reason)
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Total())
	}
	return nil
}

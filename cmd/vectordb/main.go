// Command vectordb is the administrative CLI: snapshot lifecycle, index
// configuration and ad-hoc search, built as a cobra root with one
// subcommand per concern.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doganarif/vectordb/config"
	"github.com/doganarif/vectordb/vectordb"
)

var dataDirFlag string

var rootCmd = &cobra.Command{
	Use:   "vectordb",
	Short: "Administrative CLI for the in-memory vector database",
	Long: `vectordb drives the snapshot, index-configuration and search
operations of a vector database instance against its on-disk snapshot
directory.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "snapshot directory (defaults to $DATA_DIR or \"data\")")
	rootCmd.AddCommand(snapshotCmd, indexCmd, searchCmd, autosnapshotCmd)
}

// openDB builds a DB against the configured data directory. Every CLI
// invocation is a fresh process: it restores the most recent snapshot (if
// any) so the admin commands operate against the last durable state,
// consistent with this being a short-lived admin tool rather than a
// long-running server.
func openDB() (*vectordb.DB, error) {
	cfg := config.Load()
	builder := vectordb.NewBuilder().FromConfig(cfg)
	if dataDirFlag != "" {
		builder = builder.WithDataDir(dataDirFlag)
	}
	db, err := builder.Build()
	if err != nil {
		return nil, err
	}

	headers, err := db.Snapshot.List()
	if err != nil {
		return nil, err
	}
	if len(headers) > 0 {
		latest := headers[len(headers)-1]
		if err := db.Snapshot.Restore(latest.ID); err != nil {
			return nil, fmt.Errorf("restoring latest snapshot %s: %w", latest.ID, err)
		}
	}
	return db, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

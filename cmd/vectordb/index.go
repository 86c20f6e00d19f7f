package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doganarif/vectordb/model"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Configure and inspect a library's nearest-neighbor index",
}

var indexSetCmd = &cobra.Command{
	Use:   "set <library-id> <algorithm> <metric>",
	Short: "Configure a library's index algorithm and metric",
	Long:  "algorithm is one of linear|kdtree|lsh; metric is one of cosine|euclidean.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		libraryID, algorithm, metric := args[0], model.Algorithm(args[1]), model.Metric(args[2])

		if _, err := db.Repository.GetLibrary(libraryID); err != nil {
			return err
		}
		db.Registry.Configure(libraryID, model.IndexConfig{Algorithm: algorithm, Metric: metric})
		unlock, err := db.Repository.RLock(libraryID)
		if err != nil {
			return err
		}
		_, err = db.Registry.GetOrBuild(libraryID)
		unlock()
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render("configured"), libraryID, string(algorithm), string(metric))
		return nil
	},
}

var indexDescribeCmd = &cobra.Command{
	Use:   "describe <library-id>",
	Short: "Show a library's current index configuration and build state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if _, err := db.Repository.GetLibrary(args[0]); err != nil {
			return err
		}
		desc := db.Registry.Describe(args[0])
		fmt.Printf("algorithm=%s metric=%s built=%v size=%d dimension=%d\n",
			desc.Algorithm, desc.Metric, desc.Built, desc.Size, desc.Dimension)
		if desc.LastError != "" {
			fmt.Println("last_error:", desc.LastError)
		}
		return nil
	},
}

func init() {
	indexCmd.AddCommand(indexSetCmd, indexDescribeCmd)
}

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doganarif/vectordb/search"
)

var (
	searchVector string
	searchK      int
	searchFilter []string
)

var searchCmd = &cobra.Command{
	Use:   "search <library-id>",
	Short: "Search a library by vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}

		q, err := parseVector(searchVector)
		if err != nil {
			return err
		}
		filter, err := parseFilter(searchFilter)
		if err != nil {
			return err
		}

		results, err := db.Search.Search(args[0], q, searchK, filter)
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s  %-10s  %s", "CHUNK ID", "SCORE", "TEXT")))
		for _, r := range results {
			text := r.Chunk.Text
			if len(text) > 60 {
				text = text[:57] + "..."
			}
			fmt.Printf("%-36s  %-10.4f  %s\n", r.Chunk.ID, r.Score, text)
		}
		if len(results) == 0 {
			fmt.Println(dimStyle.Render("(no matches)"))
		}
		return nil
	},
}

func parseVector(s string) ([]float32, error) {
	if s == "" {
		return nil, fmt.Errorf("--vector is required")
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("--vector: invalid component %q: %w", p, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseFilter parses repeated "key=value" flags into a search.Filter. A
// value containing commas is treated as a set for containment matching.
func parseFilter(pairs []string) (search.Filter, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filter := make(search.Filter, len(pairs))
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("--filter: expected key=value, got %q", pair)
		}
		if strings.Contains(kv[1], ",") {
			set := strings.Split(kv[1], ",")
			anySet := make([]any, len(set))
			for i, v := range set {
				anySet[i] = v
			}
			filter[kv[0]] = anySet
		} else {
			filter[kv[0]] = kv[1]
		}
	}
	return filter, nil
}

func init() {
	searchCmd.Flags().StringVar(&searchVector, "vector", "", "comma-separated query vector components")
	searchCmd.Flags().IntVar(&searchK, "k", 10, "number of results to return")
	searchCmd.Flags().StringArrayVar(&searchFilter, "filter", nil, "metadata filter key=value, repeatable")
}

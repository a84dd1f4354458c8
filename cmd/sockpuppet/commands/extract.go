package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/feature"
)

var (
	extractParallel int
	extractAttempts uint
	extractDelay    time.Duration
	extractNoCache  bool
)

func init() {
	f := extractCmd.Flags()
	f.IntVar(&extractParallel, "parallel", 1, "identifiers extracted concurrently")
	f.UintVar(&extractAttempts, "attempts", 1, "whole-extraction attempts while every strategy comes back empty")
	f.DurationVar(&extractDelay, "retry-delay", 5*time.Second, "delay between extraction attempts")
	f.BoolVar(&extractNoCache, "no-cache", false, "disable the profile lookup cache")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <username|url>...",
	Short: "Extract the feature vector for one or more accounts.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(!extractNoCache)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		results := make([]feature.Result, len(args))

		var g errgroup.Group
		g.SetLimit(max(extractParallel, 1))
		for i, id := range args {
			g.Go(func() error {
				results[i] = a.pipeline.Retrying(ctx, id, extractAttempts, extractDelay).Result
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // extraction never fails

		return writeResults(cmd.OutOrStdout(), args, results)
	},
}

// entry pairs an identifier with its result in multi-account output.
type entry struct {
	Identifier string         `json:"identifier"`
	Result     feature.Result `json:"result"`
}

// writeResults prints one result as-is, or several as an array in argument
// order. Repeated identifiers each get their own entry.
func writeResults(w io.Writer, ids []string, results []feature.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	out := make([]entry, len(results))
	for i, id := range ids {
		out[i] = entry{Identifier: id, Result: results[i]}
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
	"github.com/The-Dev-Effect/reliquery/lib/reliquery"
)

type describeParams struct {
	cli.JSONOutput
	CatalogParams
	Storage string `flag:"storage,s" desc:"storage holding the relic (default: first configured)"`
}

func describeCommand() *cli.Command {
	var params describeParams
	return &cli.Command{
		Name:    "describe",
		Summary: "Show a relic's tags and items",
		Usage:   "reliquery describe <type>/<name> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: reliquery describe <type>/<name>")
			}
			ref, err := parseRelicRef(args[0])
			if err != nil {
				return err
			}
			rq, err := params.open(ctx, env)
			if err != nil {
				return err
			}
			defer rq.Close()

			target, err := rq.storage(params.Storage)
			if err != nil {
				return err
			}
			summary, found, err := rq.Describe(ctx, ref.Name, ref.Type, target.Name())
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(env.Stderr, "relic %s/%s not found on %s\n", ref.Type, ref.Name, target.Name())
				return &cli.ExitError{Code: 1}
			}
			if done, err := params.EmitJSON(env.Stdout, summary); done {
				return err
			}
			return printSummary(env, summary)
		},
	}
}

func printSummary(env *cli.Env, summary reliquery.Summary) error {
	relicData := summary.Relic
	fmt.Fprintf(env.Stdout, "%s/%s on %s (registered %s)\n",
		relicData.Type, relicData.Name, relicData.StorageName, relicData.LastModified)

	if len(summary.Tags) > 0 {
		fmt.Fprintln(env.Stdout, "\nTags:")
		for _, key := range slices.Sorted(maps.Keys(summary.Tags)) {
			fmt.Fprintf(env.Stdout, "  %s=%s\n", key, summary.Tags[key])
		}
	}

	if len(summary.Metadata) == 0 {
		fmt.Fprintln(env.Stdout, "\nNo items.")
		return nil
	}
	fmt.Fprintln(env.Stdout)
	table := cli.Table{Headers: []string{"KIND", "NAME", "SIZE", "SHAPE", "MODIFIED"}}
	for _, record := range summary.Metadata {
		size, shape := "", ""
		if record.Size != nil {
			size = strconv.FormatFloat(*record.Size, 'f', -1, 64)
		}
		if record.Shape != nil {
			shape = *record.Shape
		}
		table.Append(record.DataKind, record.Name, size, shape, record.LastModified)
	}
	return table.Render(env.Stdout, cli.IsTerminal(env.Stdout))
}

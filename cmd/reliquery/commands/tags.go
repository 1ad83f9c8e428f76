// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
	"github.com/The-Dev-Effect/reliquery/lib/relic"
	"github.com/The-Dev-Effect/reliquery/lib/reliquery"
)

type tagsParams struct {
	cli.JSONOutput
	CatalogParams
}

func tagsCommand() *cli.Command {
	var params tagsParams
	return &cli.Command{
		Name:    "tags",
		Summary: "Find relics by tag",
		Usage:   "reliquery tags <key>=<value> [flags]",
		Examples: []cli.Example{
			{
				Description: "Relics from one experiment, across every storage",
				Command:     "reliquery tags experiment=ablation-3",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: reliquery tags <key>=<value>")
			}
			tag, err := parseTags(args)
			if err != nil {
				return err
			}
			rq, err := params.open(ctx, env)
			if err != nil {
				return err
			}
			defer rq.Close()

			var names []reliquery.RelicName
			for key, value := range tag {
				handles, err := rq.RelicsByTag(ctx, key, value)
				if err != nil {
					return err
				}
				for _, handle := range handles {
					names = append(names, handle.RelicName())
				}
			}
			return printRelicNames(env, &params.JSONOutput, names)
		},
	}
}

type tagParams struct {
	cli.JSONOutput
	CatalogParams
	Storage string `flag:"storage,s" desc:"storage holding the relic (default: first configured)"`
}

func tagCommand() *cli.Command {
	var params tagParams
	return &cli.Command{
		Name:    "tag",
		Summary: "Add tags to a relic",
		Usage:   "reliquery tag <type>/<name> <key>=<value>... [flags]",
		Description: `Merge key=value tags into a relic's tag document and print the
resulting tags. An existing key is overwritten.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) < 2 {
				return fmt.Errorf("usage: reliquery tag <type>/<name> <key>=<value>...")
			}
			ref, err := parseRelicRef(args[0])
			if err != nil {
				return err
			}
			tags, err := parseTags(args[1:])
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
			opened, err := relic.Open(ctx, relic.Config{Name: ref.Name, Type: ref.Type, Storage: target})
			if err != nil {
				return err
			}
			merged, err := opened.AddTag(ctx, tags)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.Stdout, merged); done {
				return err
			}
			for _, key := range slices.Sorted(maps.Keys(merged)) {
				fmt.Fprintf(env.Stdout, "%s=%s\n", key, merged[key])
			}
			return nil
		},
	}
}

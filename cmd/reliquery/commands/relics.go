// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
	"github.com/The-Dev-Effect/reliquery/lib/catalog"
	"github.com/The-Dev-Effect/reliquery/lib/reliquery"
)

type relicsParams struct {
	cli.JSONOutput
	CatalogParams
	Storage string `flag:"storage,s" desc:"only relics on this storage (requires --type)"`
	Type    string `flag:"type,t" desc:"only relics of this type (requires --storage)"`
}

func relicsCommand() *cli.Command {
	var params relicsParams
	return &cli.Command{
		Name:    "relics",
		Summary: "List relics",
		Usage:   "reliquery relics [--storage name --type type] [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if (params.Storage == "") != (params.Type == "") {
				return fmt.Errorf("--storage and --type must be given together")
			}
			rq, err := params.open(ctx, env)
			if err != nil {
				return err
			}
			defer rq.Close()

			var names []reliquery.RelicName
			if params.Storage != "" {
				names, err = rq.RelicNamesByStorageAndType(ctx, params.Storage, params.Type)
			} else {
				names, err = rq.RelicNames(ctx)
			}
			if err != nil {
				return err
			}
			return printRelicNames(env, &params.JSONOutput, names)
		},
	}
}

func printRelicNames(env *cli.Env, output *cli.JSONOutput, names []reliquery.RelicName) error {
	if done, err := output.EmitJSON(env.Stdout, names); done {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(env.Stdout, "No relics found.")
		return nil
	}
	table := cli.Table{Headers: []string{"STORAGE", "TYPE", "NAME"}}
	for _, name := range names {
		table.Append(name.StorageName, name.Type, name.Name)
	}
	return table.Render(env.Stdout, cli.IsTerminal(env.Stdout))
}

type typesParams struct {
	cli.JSONOutput
	CatalogParams
	Storage string `flag:"storage,s" desc:"only types on this storage"`
}

func typesCommand() *cli.Command {
	var params typesParams
	return &cli.Command{
		Name:    "types",
		Summary: "List relic types per storage",
		Usage:   "reliquery types [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			rq, err := params.open(ctx, env)
			if err != nil {
				return err
			}
			defer rq.Close()

			var pairs []catalog.TypeStorage
			if params.Storage != "" {
				types, err := rq.RelicTypesByStorage(ctx, params.Storage)
				if err != nil {
					return err
				}
				for _, relicType := range types {
					pairs = append(pairs, catalog.TypeStorage{Type: relicType, StorageName: params.Storage})
				}
			} else {
				pairs, err = rq.UniqueRelicTypesAndStorages(ctx)
				if err != nil {
					return err
				}
			}

			if done, err := params.EmitJSON(env.Stdout, pairs); done {
				return err
			}
			table := cli.Table{Headers: []string{"STORAGE", "TYPE"}}
			for _, pair := range pairs {
				table.Append(pair.StorageName, pair.Type)
			}
			return table.Render(env.Stdout, cli.IsTerminal(env.Stdout))
		},
	}
}

// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
	"github.com/The-Dev-Effect/reliquery/lib/reliquery"
)

type removeParams struct {
	CatalogParams
	Storage string `flag:"storage,s" desc:"storage holding the relic (default: first configured)"`
}

func removeCommand() *cli.Command {
	var params removeParams
	return &cli.Command{
		Name:    "remove",
		Summary: "Delete a relic and everything in it",
		Usage:   "reliquery remove <type>/<name> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: reliquery remove <type>/<name>")
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
			removed, err := rq.RemoveRelic(ctx, reliquery.Handle{Name: ref.Name, Type: ref.Type, Backend: target})
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintf(env.Stdout, "%s/%s was not in the catalog\n", ref.Type, ref.Name)
				return nil
			}
			fmt.Fprintf(env.Stdout, "removed %s/%s from %s\n", ref.Type, ref.Name, target.Name())
			return nil
		},
	}
}

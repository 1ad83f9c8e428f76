// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
)

type syncParams struct {
	cli.JSONOutput
	CatalogParams
}

func syncCommand() *cli.Command {
	var params syncParams
	return &cli.Command{
		Name:    "sync",
		Summary: "Reconcile every storage and report what changed",
		Usage:   "reliquery sync [flags]",
		Description: `Read every configured storage into the catalog and print the pass
report. Storages that fail or time out are listed; the pass continues
without them.`,
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) != 0 {
				return fmt.Errorf("sync takes no arguments")
			}
			rq, err := params.open(ctx, env)
			if err != nil {
				return err
			}
			defer rq.Close()

			report := rq.LastSync()
			if done, err := params.EmitJSON(env.Stdout, report); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "storages:          %d\n", report.Backends)
			fmt.Fprintf(env.Stdout, "relics:            %d\n", report.Relics)
			fmt.Fprintf(env.Stdout, "tags:              %d\n", report.TagsAdded)
			fmt.Fprintf(env.Stdout, "metadata:          %d\n", report.MetadataChanged)
			if report.MetadataSkipped > 0 || report.RecordErrors > 0 {
				fmt.Fprintf(env.Stdout, "skipped:           %d\n", report.MetadataSkipped+report.RecordErrors)
			}
			if len(report.FailedBackends) > 0 {
				fmt.Fprintf(env.Stdout, "unavailable:       %s\n", strings.Join(report.FailedBackends, ", "))
			}
			return nil
		},
	}
}

// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
)

type queryParams struct {
	cli.JSONOutput
	CatalogParams
}

func queryCommand() *cli.Command {
	var params queryParams
	return &cli.Command{
		Name:    "query",
		Summary: "Run SQL against the catalog",
		Usage:   "reliquery query <sql> [arg...] [flags]",
		Description: `Run one SQL statement against the catalog. Extra arguments bind to
the statement's ? parameters as text.

Tables: relics (id, relic_name, relic_type, storage_name,
last_modified), metadata (id, name, data_type, relic_id, size, shape,
digest, last_modified), tags (id, relic_id, tag_key, tag_value,
created).`,
		Examples: []cli.Example{
			{
				Description: "Count relics per storage",
				Command:     `reliquery query "select storage_name, count(*) from relics group by storage_name"`,
			},
			{
				Description: "Find large arrays",
				Command:     `reliquery query "select name, size from metadata where data_type = ? and size > 1e6" arrays --json`,
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) == 0 {
				return fmt.Errorf("usage: reliquery query <sql> [arg...]")
			}
			rq, err := params.open(ctx, env)
			if err != nil {
				return err
			}
			defer rq.Close()

			bindings := make([]any, len(args)-1)
			for i, arg := range args[1:] {
				bindings[i] = arg
			}
			rows, err := rq.Query(ctx, args[0], bindings...)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.Stdout, rows.Records()); done {
				return err
			}

			table := cli.Table{Headers: rows.Columns}
			for _, row := range rows.Values {
				cells := make([]string, len(row))
				for i, value := range row {
					cells[i] = formatValue(value)
				}
				table.Append(cells...)
			}
			return table.Render(env.Stdout, cli.IsTerminal(env.Stdout))
		},
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	default:
		return fmt.Sprint(v)
	}
}

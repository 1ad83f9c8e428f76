// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
	"github.com/The-Dev-Effect/reliquery/lib/relic"
	"github.com/The-Dev-Effect/reliquery/lib/schema"
)

type putParams struct {
	CatalogParams
	Storage string `flag:"storage,s" desc:"storage to write to (default: first configured)"`
	Shape   string `flag:"shape" desc:"comma-separated dimensions for arrays and pandasdf (e.g. 100,3)"`
}

func putCommand() *cli.Command {
	var params putParams
	return &cli.Command{
		Name:    "put",
		Summary: "Store a local file as a relic item",
		Usage:   "reliquery put <type>/<name> <kind> <item> <file> [flags]",
		Description: `Store a local file as an item of a relic, creating the relic if
needed. Kinds: ` + strings.Join(schema.DataKinds, ", ") + `.

Payloads are stored as-is; for arrays and pandasdf pass --shape to
record the dimensions.`,
		Examples: []cli.Example{
			{
				Description: "Store training notes",
				Command:     "reliquery put experiment/run-7 text notes notes.txt",
			},
			{
				Description: "Store an encoded 100x3 array",
				Command:     "reliquery put experiment/run-7 arrays weights weights.npy --shape 100,3",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) != 4 {
				return fmt.Errorf("usage: reliquery put <type>/<name> <kind> <item> <file>")
			}
			ref, err := parseRelicRef(args[0])
			if err != nil {
				return err
			}
			kind, item, localPath := args[1], args[2], args[3]
			if !slices.Contains(schema.DataKinds, kind) {
				return fmt.Errorf("unknown kind %q (want one of %s)", kind, strings.Join(schema.DataKinds, ", "))
			}
			dims, err := parseShape(params.Shape)
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
			if err := putItem(ctx, opened, kind, item, localPath, dims); err != nil {
				return err
			}
			fmt.Fprintf(env.Stdout, "stored %s/%s %s/%s on %s\n", ref.Type, ref.Name, kind, item, target.Name())
			return nil
		},
	}
}

func parseShape(value string) ([]int, error) {
	if value == "" {
		return nil, nil
	}
	var dims []int
	for _, part := range strings.Split(value, ",") {
		dim, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || dim < 0 {
			return nil, fmt.Errorf("--shape: invalid dimension %q", part)
		}
		dims = append(dims, dim)
	}
	return dims, nil
}

func putItem(ctx context.Context, r *relic.Relic, kind, item, localPath string, dims []int) error {
	switch kind {
	case schema.DataKindHTML:
		return r.AddHTML(ctx, item, localPath)
	case schema.DataKindFiles:
		return r.AddFile(ctx, item, localPath)
	case schema.DataKindNotebooks:
		return r.AddNotebook(ctx, item, localPath)
	case schema.DataKindVideos:
		return r.AddVideo(ctx, item, localPath)
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	switch kind {
	case schema.DataKindText:
		return r.AddText(ctx, item, string(data))
	case schema.DataKindJSON:
		if !json.Valid(data) {
			return fmt.Errorf("%s is not valid JSON", localPath)
		}
		return r.AddJSON(ctx, item, json.RawMessage(data))
	case schema.DataKindArrays:
		return r.AddArray(ctx, item, data, dims)
	case schema.DataKindImages:
		return r.AddImage(ctx, item, data)
	case schema.DataKindPandasDF:
		if len(dims) != 2 {
			return fmt.Errorf("pandasdf needs --shape rows,columns")
		}
		return r.AddPandasDF(ctx, item, data, dims[0], dims[1])
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
}

type getParams struct {
	CatalogParams
	Storage string `flag:"storage,s" desc:"storage to read from (default: first configured)"`
	Output  string `flag:"output,o" desc:"write to this file instead of stdout"`
	Verify  bool   `flag:"verify" desc:"check the payload against its recorded digest first"`
}

func getCommand() *cli.Command {
	var params getParams
	return &cli.Command{
		Name:    "get",
		Summary: "Read a relic item",
		Usage:   "reliquery get <type>/<name> <kind> <item> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, env *cli.Env) error {
			if len(args) != 3 {
				return fmt.Errorf("usage: reliquery get <type>/<name> <kind> <item>")
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
			exists, err := relic.Exists(ctx, target, ref.Type, ref.Name)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("relic %s/%s not found on %s", ref.Type, ref.Name, target.Name())
			}
			opened, err := relic.Open(ctx, relic.Config{Name: ref.Name, Type: ref.Type, Storage: target})
			if err != nil {
				return err
			}
			if params.Verify {
				if err := opened.Verify(ctx, args[1], args[2]); err != nil {
					return err
				}
			}
			data, err := opened.Get(ctx, args[1], args[2])
			if err != nil {
				return err
			}
			if params.Output != "" {
				return os.WriteFile(params.Output, data, 0o644)
			}
			_, err = env.Stdout.Write(data)
			return err
		},
	}
}

// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the reliquery CLI command tree.
//
// Every command opens the configured storages, runs one
// reconciliation pass into an in-memory catalog, acts, and closes
// everything again. Nothing persists between invocations except what
// the storages hold.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/The-Dev-Effect/reliquery/cmd/reliquery/cli"
	"github.com/The-Dev-Effect/reliquery/lib/config"
	"github.com/The-Dev-Effect/reliquery/lib/reliquery"
	"github.com/The-Dev-Effect/reliquery/lib/storage"
	"github.com/The-Dev-Effect/reliquery/lib/version"
)

// Root builds the complete command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "reliquery",
		Description: `Reliquery: a store for research artifacts.

Relics are named bundles of text, arrays, images, notebooks, and other
files kept on one or more storages. Every command reconciles the
configured storages into a queryable catalog before it runs.

Storages are read from $RELIQUERY_CONFIG (a file path or inline JSON)
or ~/reliquery/config.`,
		Subcommands: []*cli.Command{
			syncCommand(),
			queryCommand(),
			relicsCommand(),
			typesCommand(),
			tagsCommand(),
			tagCommand(),
			describeCommand(),
			removeCommand(),
			putCommand(),
			getCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, env *cli.Env) error {
					fmt.Fprintf(env.Stdout, "reliquery %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// CatalogParams selects the storages and bounds the initial pass. It is
// exported so reflection can bind its fields when embedded.
type CatalogParams struct {
	Config  string        `flag:"config,c" desc:"storage configuration file (default $RELIQUERY_CONFIG or ~/reliquery/config)"`
	Timeout time.Duration `flag:"timeout" desc:"per-storage snapshot timeout" default:"30s"`
	Verbose bool          `flag:"verbose,v" desc:"log sync progress"`
}

// session is an open catalog over the configured storages.
type session struct {
	*reliquery.Reliquery
	storages []*storage.Storage
}

func (s *session) Close() error {
	errs := []error{s.Reliquery.Close()}
	for _, opened := range s.storages {
		errs = append(errs, opened.Close())
	}
	return errors.Join(errs...)
}

// storage returns the named storage, or the first configured one when
// name is empty.
func (s *session) storage(name string) (*storage.Storage, error) {
	if name == "" {
		return s.storages[0], nil
	}
	for _, opened := range s.storages {
		if opened.Name() == name {
			return opened, nil
		}
	}
	names := make([]string, len(s.storages))
	for i, opened := range s.storages {
		names[i] = opened.Name()
	}
	return nil, fmt.Errorf("unknown storage %q (configured: %s)", name, strings.Join(names, ", "))
}

func (p *CatalogParams) open(ctx context.Context, env *cli.Env) (*session, error) {
	logger := env.Logger
	if p.Verbose {
		logger = cli.NewCommandLogger(slog.LevelDebug)
	}

	var (
		cfg *config.Config
		err error
	)
	if p.Config != "" {
		cfg, err = config.LoadFile(p.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	storages, err := storage.OpenAll(cfg, logger)
	if len(storages) == 0 {
		if err == nil {
			err = errors.New("no storages configured")
		}
		return nil, err
	}

	backends := make([]reliquery.Backend, len(storages))
	for i, opened := range storages {
		backends[i] = opened
	}
	rq, err := reliquery.New(ctx, reliquery.Config{
		Backends:       backends,
		Logger:         logger,
		BackendTimeout: p.Timeout,
	})
	if err != nil {
		for _, opened := range storages {
			opened.Close()
		}
		return nil, err
	}
	return &session{Reliquery: rq, storages: storages}, nil
}

// relicRef identifies a relic on the command line as <type>/<name>.
type relicRef struct {
	Type string
	Name string
}

func parseRelicRef(arg string) (relicRef, error) {
	relicType, name, ok := strings.Cut(arg, "/")
	if !ok || relicType == "" || name == "" || strings.Contains(name, "/") {
		return relicRef{}, fmt.Errorf("relic must be <type>/<name>, got %q", arg)
	}
	return relicRef{Type: relicType, Name: name}, nil
}

// parseTags parses key=value arguments.
func parseTags(args []string) (map[string]string, error) {
	tags := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("tag must be key=value, got %q", arg)
		}
		tags[key] = value
	}
	return tags, nil
}

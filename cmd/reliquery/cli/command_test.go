// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testEnv() (*Env, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Env{Stdout: &stdout, Stderr: &stderr, Logger: slog.New(slog.DiscardHandler)}, &stdout, &stderr
}

func TestExecuteDispatchesToSubcommand(t *testing.T) {
	var called string
	var receivedArgs []string
	root := &Command{
		Name: "reliquery",
		Subcommands: []*Command{
			{Name: "sync", Run: func(_ context.Context, args []string, _ *Env) error {
				called = "sync"
				return nil
			}},
			{Name: "tag", Subcommands: []*Command{
				{Name: "add", Run: func(_ context.Context, args []string, _ *Env) error {
					called = "tag add"
					receivedArgs = args
					return nil
				}},
			}},
		},
	}
	env, _, _ := testEnv()

	if err := root.Execute(context.Background(), []string{"tag", "add", "basic/r1", "k=v"}, env); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if called != "tag add" {
		t.Errorf("dispatched to %q, want tag add", called)
	}
	if len(receivedArgs) != 2 || receivedArgs[1] != "k=v" {
		t.Errorf("args = %v", receivedArgs)
	}
}

type syncParams struct {
	JSONOutput
	Timeout time.Duration `flag:"timeout" desc:"per-backend timeout" default:"30s"`
	Storage string        `flag:"storage,s" desc:"storage name"`
}

func TestExecuteParsesFlags(t *testing.T) {
	var params syncParams
	var receivedArgs []string
	command := &Command{
		Name:   "sync",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, _ *Env) error {
			receivedArgs = args
			return nil
		},
	}
	env, _, _ := testEnv()

	if err := command.Execute(context.Background(), []string{"-s", "stor1", "extra", "--json"}, env); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if params.Storage != "stor1" || !params.OutputJSON {
		t.Errorf("params = %+v", params)
	}
	if params.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", params.Timeout)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra" {
		t.Errorf("args = %v, want [extra]", receivedArgs)
	}
}

func TestExecuteSuggestsUnknownCommand(t *testing.T) {
	root := &Command{
		Name: "reliquery",
		Subcommands: []*Command{
			{Name: "describe", Run: func(context.Context, []string, *Env) error { return nil }},
		},
	}
	env, _, _ := testEnv()
	err := root.Execute(context.Background(), []string{"descrbe"}, env)
	if err == nil || !strings.Contains(err.Error(), `did you mean "describe"`) {
		t.Errorf("Execute error = %v, want a suggestion", err)
	}
}

func TestExecuteSuggestsUnknownFlag(t *testing.T) {
	var params syncParams
	command := &Command{
		Name:   "sync",
		Params: func() any { return &params },
		Run:    func(context.Context, []string, *Env) error { return nil },
	}
	env, _, _ := testEnv()
	err := command.Execute(context.Background(), []string{"--timout", "5s"}, env)
	if err == nil || !strings.Contains(err.Error(), "did you mean --timeout") {
		t.Errorf("Execute error = %v, want a flag suggestion", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	var params syncParams
	root := &Command{
		Name: "reliquery",
		Subcommands: []*Command{
			{
				Name:     "sync",
				Summary:  "Reconcile the catalog",
				Params:   func() any { return &params },
				Examples: []Example{{Description: "Sync everything", Command: "reliquery sync"}},
				Run:      func(context.Context, []string, *Env) error { return nil },
			},
		},
	}
	env, _, stderr := testEnv()

	if err := root.Execute(context.Background(), []string{"sync", "--help"}, env); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	help := stderr.String()
	for _, want := range []string{"Reconcile the catalog", "reliquery sync [flags]", "--timeout", "# Sync everything"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestExecuteRequiresSubcommand(t *testing.T) {
	root := &Command{
		Name:        "reliquery",
		Subcommands: []*Command{{Name: "sync", Summary: "Reconcile"}},
	}
	env, _, stderr := testEnv()
	if err := root.Execute(context.Background(), nil, env); err == nil {
		t.Error("expected error without a subcommand")
	}
	if !strings.Contains(stderr.String(), "sync") {
		t.Errorf("help not printed: %q", stderr.String())
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"sync", "sync", 0},
		{"sycn", "sync", 2},
		{"relics", "relic", 1},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestEmitJSON(t *testing.T) {
	var stdout bytes.Buffer
	output := JSONOutput{}
	if done, _ := output.EmitJSON(&stdout, []string{"a"}); done {
		t.Error("EmitJSON wrote without --json")
	}

	output.OutputJSON = true
	var empty []string
	done, err := output.EmitJSON(&stdout, empty)
	if !done || err != nil {
		t.Fatalf("EmitJSON = %v, %v", done, err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "[]" {
		t.Errorf("nil slice encoded as %q, want []", got)
	}
}

func TestTableRender(t *testing.T) {
	table := Table{Headers: []string{"NAME", "TYPE"}}
	table.Append("r1", "basic")
	table.Append("longer-name", "model")

	var out bytes.Buffer
	if err := table.Render(&out, false); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "NAME         TYPE\n" +
		"r1           basic\n" +
		"longer-name  model\n"
	if out.String() != want {
		t.Errorf("Render =\n%s\nwant\n%s", out.String(), want)
	}
}

func TestBindFlagsRejectsUnsupportedTypes(t *testing.T) {
	var params struct {
		Count uint `flag:"count"`
	}
	if err := BindFlags(&params, FlagsFromParams("x", &struct{}{})); err == nil {
		t.Error("expected error for uint field")
	}
	if err := BindFlags(params, nil); err == nil {
		t.Error("expected error for non-pointer params")
	}
}

// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the reliquery
// CLI.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a params struct whose tagged fields
// become pflag flags, and a Run function. Commands are assembled into
// a tree by cmd/reliquery/commands and dispatched with
// [Command.Execute], which handles flag parsing, subcommand routing,
// and help output with examples.
//
// Unknown subcommands and flags get a "did you mean" suggestion when
// a known name is within edit distance 3.
//
// Output helpers: [JSONOutput] adds a --json flag to a params struct,
// and [Table] renders aligned columns, bold headers when the output is
// a terminal.
package cli

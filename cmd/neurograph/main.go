// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the NeuroGraph CLI for analyzing source trees
// into a code graph with incremental Merkle fingerprints.
//
// Usage:
//
//	neurograph init                   Create .neurograph/project.yaml
//	neurograph analyze                Analyze the current repository
//	neurograph diff                   Show changes since the last analysis
//	neurograph [--json] status        Show fingerprint cache status
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/neurograph/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool // Output in JSON format (for applicable commands)
	NoColor bool // Disable color output
	Quiet   bool // Suppress non-essential output
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .neurograph/project.yaml (default: ./.neurograph/project.yaml)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output (respects NO_COLOR env var)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	// Stop parsing at the first non-flag argument (the command name) so
	// subcommand-specific flags reach the subcommand handlers.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `NeuroGraph - incremental code graph analyzer

NeuroGraph parses a source tree with Tree-sitter, extracts its structural
and referential skeleton as a typed graph, fingerprints every node for
incremental re-ingestion, and streams the result to a graph store.

Usage:
  neurograph <command> [options]

Commands:
  init          Create .neurograph/project.yaml configuration
  analyze       Analyze the repository and update the fingerprint cache
  diff          Show the change set since the last analysis
  status        Show fingerprint cache status

Global Options:
  --json        Output in JSON format (for applicable commands)
  --no-color    Disable color output (respects NO_COLOR env var)
  -c, --config  Path to .neurograph/project.yaml
  -q, --quiet   Suppress non-essential output
  -V, --version Show version and exit

Run 'neurograph <command> --help' for command-specific options.
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("neurograph %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	if *noColor {
		ui.DisableColor()
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Quiet:   *quiet,
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "init":
		runInit(commandArgs, globals)
	case "analyze":
		runAnalyze(commandArgs, *configPath, globals)
	case "diff":
		runDiff(commandArgs, *configPath, globals)
	case "status":
		runStatus(commandArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(2)
	}
}

// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the mzc CLI: ingest SSIS/Informatica packages into
// a canonical graph, run the cross-package dependency analyzer over it, and
// search the result through the hierarchical index.
//
// Usage:
//
//	mzc ingest <root> [--project=<id>] [--remote=<uri>]
//	mzc analyze [--project=<id>]
//	mzc search <query> [--project=<id>] [--mode=all] [--top=10]
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var showVersion = flag.Bool("version", false, "Show version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("mzc version %s (%s)\n", version, commit)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command, cmdArgs := args[0], args[1:]
	switch command {
	case "ingest":
		runIngest(cmdArgs)
	case "analyze":
		runAnalyze(cmdArgs)
	case "search":
		runSearch(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mzc - SSIS/Informatica metadata graph CLI

Usage:
  mzc <command> [options]

Commands:
  ingest   Parse a project root and write its graph to a backend
  analyze  Run the cross-package dependency analyzer over a project's graph
  search   Query a project's hierarchical search index

Global Options:
  --version   Show version and exit

Command Options (accepted after any command):
  --config    Project config file (default: ./.mzc/project.yaml if present)

Examples:
  mzc ingest ./SalesETL --project=sales-etl
  mzc analyze --project=sales-etl
  mzc search "customers" --project=sales-etl --mode=content

`)
}

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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/index"
)

// searchHit is the --json shape for one search result.
type searchHit struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// runSearch loads a project's persisted index sidecar and queries it.
// --focus selects index.MigrationSearch's query-expansion instead of a
// raw Search call when set to one of its known focus areas.
func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	mode := fs.String("mode", "all", "Search level: id, name, metadata, content, or all")
	focus := fs.String("focus", "", "Migration focus: sql_operations, cross_package_deps, error_handling, shared_resources")
	topK := fs.Int("top", 10, "Maximum results to return")
	pf := bindProjectFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mzc search <query> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	query := fs.Arg(0)

	info, err := bootstrapProjectInfo(pf)
	if err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}

	idx, err := index.Load(pf.sidecarPath(info), index.DomainConfig())
	if err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}

	var results []index.Result
	if *focus != "" {
		results = index.MigrationSearch(idx, query, *focus, *topK)
	} else {
		results = idx.Search(query, index.Mode(*mode), *topK)
	}

	hits := make([]searchHit, len(results))
	for i, r := range results {
		hits[i] = searchHit{ID: r.Node.ID, Kind: string(r.Node.Kind), Name: r.Node.Name, Score: r.Score}
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(hits)
		return
	}

	if len(hits) == 0 {
		fmt.Println("No results.")
		return
	}
	for _, h := range hits {
		fmt.Printf("%-8.4f %-12s %-30s %s\n", h.Score, h.Kind, h.Name, h.ID)
	}
}

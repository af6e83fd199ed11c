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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/index"
	"github.com/metazcode/mzc/pkg/orchestrator"
	"github.com/metazcode/mzc/pkg/typemap"
)

// ingestResult is the --json shape for the ingest command.
type ingestResult struct {
	ProjectID    string   `json:"project_id"`
	Backend      string   `json:"backend"`
	NodesWritten int      `json:"nodes_written"`
	EdgesWritten int      `json:"edges_written"`
	FellBack     bool     `json:"fell_back_to_memory"`
	ToolsRun     []string `json:"tools_run"`
	DurationMS   int64    `json:"duration_ms"`
	IndexSidecar string   `json:"index_sidecar"`
	Error        string   `json:"error,omitempty"`
}

// runIngest parses rootPath with every ingestion tool, writes the combined
// batch to the selected graph backend, and persists a fresh search index
// sidecar alongside it.
func runIngest(args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	pf := bindProjectFlags(fs)
	var platformNames []string
	fs.StringSliceVar(&platformNames, "platforms", nil, "Target platforms for type enrichment (default: config file's target_platforms, else sql_server,postgresql,mysql,oracle)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mzc ingest <root> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	rootPath := fs.Arg(0)

	logger := slog.Default()
	ctx := context.Background()

	platforms := typemap.DefaultTargetPlatforms
	if len(platformNames) > 0 {
		platforms = make([]typemap.TargetPlatform, len(platformNames))
		for i, p := range platformNames {
			platforms[i] = typemap.TargetPlatform(p)
		}
	} else if config, err := pf.resolved(); err == nil && len(config.TargetPlatforms) > 0 {
		platforms = config.TargetPlatforms
	}

	client, info, err := pf.open(ctx, logger)
	if err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}
	defer client.Close(ctx)

	activeClient, result, err := orchestrator.Run(ctx, client, rootPath, platforms, logger)
	if err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}

	idx, err := index.NewDomainIndex(ctx, activeClient)
	if err != nil {
		mzerrors.FatalError(mzerrors.NewIndexBuildFailure(info.ProjectID, err), *jsonOutput)
		return
	}
	idx.SetProjectID(info.ProjectID)

	sidecarPath := pf.sidecarPath(info)
	if err := index.Save(sidecarPath, idx); err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}

	var tools []string
	for _, tr := range result.ToolResults {
		tools = append(tools, tr.Kind)
	}

	out := ingestResult{
		ProjectID:    info.ProjectID,
		Backend:      info.Backend,
		NodesWritten: result.NodesWritten,
		EdgesWritten: result.EdgesWritten,
		FellBack:     result.FellBackToMem,
		ToolsRun:     tools,
		DurationMS:   result.Duration.Milliseconds(),
		IndexSidecar: sidecarPath,
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Printf("Ingested %s (%s backend)\n", out.ProjectID, out.Backend)
	fmt.Printf("  Nodes:    %d\n", out.NodesWritten)
	fmt.Printf("  Edges:    %d\n", out.EdgesWritten)
	fmt.Printf("  Tools:    %v\n", out.ToolsRun)
	fmt.Printf("  Duration: %dms\n", out.DurationMS)
	if out.FellBack {
		fmt.Println("  Warning: fell back to in-memory backend")
	}
	fmt.Printf("  Index:    %s\n", out.IndexSidecar)
}

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
	"github.com/metazcode/mzc/pkg/analysis"
	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/index"
)

// runAnalyze re-opens a project's graph backend, runs the cross-package
// dependency analyzer over it, and rebuilds the index sidecar so the
// execution-priority/dependency annotations it just wrote become
// searchable.
func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	pf := bindProjectFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mzc analyze [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := slog.Default()
	ctx := context.Background()

	client, info, err := pf.open(ctx, logger)
	if err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}
	defer client.Close(ctx)

	report, err := analysis.Analyze(ctx, client, logger)
	if err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}

	if info.Backend == "remote" {
		if err := graph.PrepareForApplications(ctx, client); err != nil {
			mzerrors.FatalError(err, *jsonOutput)
			return
		}
	}

	idx, err := index.NewDomainIndex(ctx, client)
	if err != nil {
		mzerrors.FatalError(mzerrors.NewIndexBuildFailure(info.ProjectID, err), *jsonOutput)
		return
	}
	idx.SetProjectID(info.ProjectID)
	if err := index.Save(pf.sidecarPath(info), idx); err != nil {
		mzerrors.FatalError(err, *jsonOutput)
		return
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}

	fmt.Printf("Analyzed %s: %d packages\n", info.ProjectID, report.PackagesAnalyzed)
	fmt.Printf("  Shared tables:       %d\n", len(report.SharedTables))
	fmt.Printf("  Shared connections:  %d\n", len(report.SharedConnections))
	fmt.Printf("  Shared parameters:   %d\n", len(report.SharedParameters))
	fmt.Printf("  Dependencies:        %d\n", len(report.DataDependencies))
	fmt.Printf("  Cross-package edges: %d\n", report.CrossPackageEdgesAdded)
	fmt.Println("  Execution order:")
	for i, level := range report.ExecutionOrder {
		fmt.Printf("    %d: %v\n", i+1, level)
	}
	if len(report.ContentionRisks.HighRiskConnections) > 0 {
		fmt.Printf("  High-risk connections: %d\n", len(report.ContentionRisks.HighRiskConnections))
	}
	if len(report.ContentionRisks.HighContentionTables) > 0 {
		fmt.Printf("  High-contention tables: %d\n", len(report.ContentionRisks.HighContentionTables))
	}
}

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

// Package orchestrator runs the ingestion tools, writes their combined
// (nodes, edges) batches into a graph client, and degrades to the in-memory
// backend when the remote client is unavailable. It is the single-writer
// critical section every parser funnels through.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/internal/metrics"
	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/ingestion/informatica"
	"github.com/metazcode/mzc/pkg/ingestion/ssis"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/typemap"
)

// ParseFunc is the shape every ingestion tool's entry point has: discover
// files under rootPath, return every node/edge it produced.
type ParseFunc func(rootPath string, targetPlatforms []typemap.TargetPlatform) ([]*model.Node, []*model.Edge, error)

// Tool is one source technology's ingestion entry point, identified by kind
// rather than by path so discovery can be static (§4.7).
type Tool struct {
	Kind  string
	Parse ParseFunc
}

// DefaultTools is the fixed set of ingestion tools the orchestrator runs on
// every project root: one per source technology.
var DefaultTools = []Tool{
	{Kind: "ssis", Parse: ssis.Parse},
	{Kind: "informatica", Parse: informatica.Parse},
}

// ToolResult reports one tool's contribution to the run. Err is non-nil
// when the tool failed outright (e.g. the root path doesn't exist); parsers
// never throw through the orchestrator, so a failing tool does not abort
// the others.
type ToolResult struct {
	Kind  string
	Nodes int
	Edges int
	Err   error
}

// Result summarizes one orchestrator run.
type Result struct {
	NodesWritten  int
	EdgesWritten  int
	ToolResults   []ToolResult
	FellBackToMem bool
	Duration      time.Duration
}

// Run runs every tool from DefaultTools against rootPath one after another,
// collects each tool's batch, and writes the combined batch into client via
// AddNodes/AddEdges once the last tool has finished; nothing is written
// between tools. It returns the client actually written to: client itself,
// unless it reported *errors.BackendUnavailable, in which case Run falls
// back to a fresh in-memory client, replays the combined batch into it, and
// returns that instead.
func Run(ctx context.Context, client graph.Client, rootPath string, targetPlatforms []typemap.TargetPlatform, logger *slog.Logger) (graph.Client, *Result, error) {
	return RunTools(ctx, client, rootPath, targetPlatforms, DefaultTools, logger)
}

// RunTools is Run with an explicit tool set, so callers (and tests) can
// substitute fakes for DefaultTools without touching global state.
func RunTools(ctx context.Context, client graph.Client, rootPath string, targetPlatforms []typemap.TargetPlatform, tools []Tool, logger *slog.Logger) (graph.Client, *Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var allNodes []*model.Node
	var allEdges []*model.Edge
	var toolResults []ToolResult

	for _, tool := range tools {
		logger.Info("orchestrator.tool.start", "kind", tool.Kind, "root", rootPath)

		nodes, edges, err := tool.Parse(rootPath, targetPlatforms)
		if err != nil {
			logger.Warn("orchestrator.tool.error", "kind", tool.Kind, "err", err)
			toolResults = append(toolResults, ToolResult{Kind: tool.Kind, Err: err})
			metrics.RecordToolResult(tool.Kind, 0, 0, 0, err)
			continue
		}

		logger.Info("orchestrator.tool.complete", "kind", tool.Kind, "nodes", len(nodes), "edges", len(edges))
		toolResults = append(toolResults, ToolResult{Kind: tool.Kind, Nodes: len(nodes), Edges: len(edges)})
		metrics.RecordToolResult(tool.Kind, 0, len(nodes), len(edges), nil)
		allNodes = append(allNodes, nodes...)
		allEdges = append(allEdges, edges...)
	}

	activeClient, fellBack, err := writeBatch(ctx, client, allNodes, allEdges, logger)
	if err != nil {
		return nil, nil, err
	}
	if fellBack {
		metrics.RecordBackendFallback()
	}

	result := &Result{
		NodesWritten:  len(allNodes),
		EdgesWritten:  len(allEdges),
		ToolResults:   toolResults,
		FellBackToMem: fellBack,
		Duration:      time.Since(start),
	}

	logger.Info("orchestrator.run.complete",
		"nodes_written", result.NodesWritten,
		"edges_written", result.EdgesWritten,
		"fell_back_to_memory", result.FellBackToMem,
		"duration_ms", result.Duration.Milliseconds(),
	)
	metrics.ObserveParseDuration(result.Duration)

	return activeClient, result, nil
}

// writeBatch forwards nodes then edges to client, preserving emission order
// so container nodes (pipeline) are always written before their contents
// and no edge is written before both endpoints exist. On
// *errors.BackendUnavailable it logs a warning and replays the same batch
// into a fresh in-memory client, per §5's fallback policy.
func writeBatch(ctx context.Context, client graph.Client, nodes []*model.Node, edges []*model.Edge, logger *slog.Logger) (graph.Client, bool, error) {
	if err := client.AddNodes(ctx, nodes); err != nil {
		if isBackendUnavailable(err) {
			return fallbackToMemory(ctx, nodes, edges, logger)
		}
		return nil, false, err
	}
	if err := client.AddEdges(ctx, edges); err != nil {
		if isBackendUnavailable(err) {
			return fallbackToMemory(ctx, nodes, edges, logger)
		}
		return nil, false, err
	}
	return client, false, nil
}

func fallbackToMemory(ctx context.Context, nodes []*model.Node, edges []*model.Edge, logger *slog.Logger) (graph.Client, bool, error) {
	logger.Warn("orchestrator.backend.unavailable.fallback", "backend", "memory")
	mem := graph.NewMemoryClient()
	if err := mem.AddNodes(ctx, nodes); err != nil {
		return nil, false, err
	}
	if err := mem.AddEdges(ctx, edges); err != nil {
		return nil, false, err
	}
	return mem, true, nil
}

func isBackendUnavailable(err error) bool {
	var unavailable *mzerrors.BackendUnavailable
	return errors.As(err, &unavailable)
}

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

// Package analysis implements the post-ingest cross-package dependency
// analyzer (§4.8): it walks the completed graph for tables, connections, and
// parameters touched by more than one pipeline, derives depends_on and
// shares_resource edges from that sharing, topologically orders the
// pipelines, and annotates each pipeline node with the result. It never
// mutates a graph mid-ingestion; it is a pure post-pass over a stable graph.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/metazcode/mzc/internal/metrics"
	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/model"
)

// SharedTable describes a table node reachable, via contains then
// reads_from/writes_to, from more than one pipeline.
type SharedTable struct {
	TableID            string
	TableName          string
	Packages           []string
	Readers            []string
	Writers            []string
	IsIntegrationPoint bool
}

// SharedConnection describes a connection node used by more than one
// pipeline's operations.
type SharedConnection struct {
	ConnectionID   string
	ConnectionName string
	Packages       []string
	ContentionRisk string // "HIGH" if used by more than 3 packages, else "MEDIUM"
}

// SharedParameter describes a parameter node used by more than one
// pipeline's operations.
type SharedParameter struct {
	ParameterID   string
	ParameterName string
	Packages      []string
}

// Dependency is a data-flow dependency derived from an integration table:
// WriterPackage must complete before ReaderPackage.
type Dependency struct {
	WriterPackage      string
	ReaderPackage      string
	DependencyType     string
	SharedResource     string
	SharedResourceName string
	Description        string
}

// ContentionRisks summarizes resources likely to cause scheduling contention.
type ContentionRisks struct {
	HighRiskConnections    []SharedConnection
	HighContentionTables   []SharedTable
	TotalSharedConnections int
	TotalSharedTables      int
}

// Report is the result of one Analyze run.
type Report struct {
	PackagesAnalyzed       int
	SharedTables           map[string]SharedTable
	SharedConnections      map[string]SharedConnection
	SharedParameters       map[string]SharedParameter
	DataDependencies       []Dependency
	ExecutionOrder         [][]string
	CrossPackageEdgesAdded int
	ContentionRisks        ContentionRisks
}

type resourceUsage struct {
	name     string
	readers  map[string]struct{} // operation ids
	writers  map[string]struct{} // operation ids
	packages map[string]struct{} // pipeline ids
}

func newResourceUsage(name string) *resourceUsage {
	return &resourceUsage{
		name:     name,
		readers:  make(map[string]struct{}),
		writers:  make(map[string]struct{}),
		packages: make(map[string]struct{}),
	}
}

// Analyze walks client's current graph, derives shared-resource dependencies
// among pipelines, writes depends_on and shares_resource edges, annotates
// every pipeline node with its execution priority and dependency lists, and
// returns a report. Running it twice against an unchanged graph adds zero new
// edges: every write below is a MERGE keyed by (source, relation, target).
func Analyze(ctx context.Context, client graph.Client, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	pipelines, err := client.GetNodesByKind(ctx, model.KindPipeline)
	if err != nil {
		return nil, fmt.Errorf("analysis: list pipelines: %w", err)
	}
	allNodes, err := client.GetAllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis: list nodes: %w", err)
	}
	allEdges, err := client.GetAllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis: list edges: %w", err)
	}

	kindByID := make(map[string]model.Kind, len(allNodes))
	for _, n := range allNodes {
		kindByID[n.ID] = n.Kind
	}

	pipelineIDs := make(map[string]struct{}, len(pipelines))
	for _, p := range pipelines {
		pipelineIDs[p.ID] = struct{}{}
	}

	// operationPipeline[operationID] = the pipeline that contains it, via a
	// contains edge whose source is a pipeline.
	operationPipeline := make(map[string]string)
	for _, e := range allEdges {
		if e.Relation != model.RelationContains {
			continue
		}
		if _, ok := pipelineIDs[e.SourceID]; !ok {
			continue
		}
		if kindByID[e.TargetID] != model.KindOperation {
			continue
		}
		operationPipeline[e.TargetID] = e.SourceID
	}

	tableUsage := make(map[string]*resourceUsage)
	connUsage := make(map[string]*resourceUsage)
	paramUsage := make(map[string]*resourceUsage)

	for _, e := range allEdges {
		pkg, ok := operationPipeline[e.SourceID]
		if !ok {
			continue
		}
		switch e.Relation {
		case model.RelationWritesTo:
			if kindByID[e.TargetID] != model.KindTable {
				continue
			}
			u := ensureUsage(tableUsage, e.TargetID, nodeName(allNodes, e.TargetID))
			u.writers[e.SourceID] = struct{}{}
			u.packages[pkg] = struct{}{}
		case model.RelationReadsFrom:
			if kindByID[e.TargetID] != model.KindTable {
				continue
			}
			u := ensureUsage(tableUsage, e.TargetID, nodeName(allNodes, e.TargetID))
			u.readers[e.SourceID] = struct{}{}
			u.packages[pkg] = struct{}{}
		case model.RelationUsesConnection:
			if kindByID[e.TargetID] != model.KindConnection {
				continue
			}
			u := ensureUsage(connUsage, e.TargetID, nodeName(allNodes, e.TargetID))
			u.packages[pkg] = struct{}{}
		case model.RelationUsesParameter:
			if kindByID[e.TargetID] != model.KindParameter {
				continue
			}
			u := ensureUsage(paramUsage, e.TargetID, nodeName(allNodes, e.TargetID))
			u.packages[pkg] = struct{}{}
		}
	}

	sharedTables := make(map[string]SharedTable)
	for id, u := range tableUsage {
		if len(u.packages) <= 1 {
			continue
		}
		sharedTables[id] = SharedTable{
			TableID:            id,
			TableName:          u.name,
			Packages:           sortedKeys(u.packages),
			Readers:            sortedKeys(u.readers),
			Writers:            sortedKeys(u.writers),
			IsIntegrationPoint: len(u.writers) > 0 && len(u.readers) > 0,
		}
	}

	sharedConnections := make(map[string]SharedConnection)
	for id, u := range connUsage {
		if len(u.packages) <= 1 {
			continue
		}
		risk := "MEDIUM"
		if len(u.packages) > 3 {
			risk = "HIGH"
		}
		sharedConnections[id] = SharedConnection{
			ConnectionID:   id,
			ConnectionName: u.name,
			Packages:       sortedKeys(u.packages),
			ContentionRisk: risk,
		}
	}

	sharedParameters := make(map[string]SharedParameter)
	for id, u := range paramUsage {
		if len(u.packages) <= 1 {
			continue
		}
		sharedParameters[id] = SharedParameter{
			ParameterID:   id,
			ParameterName: u.name,
			Packages:      sortedKeys(u.packages),
		}
	}

	dependencies := dataFlowDependencies(sharedTables, operationPipeline, allEdges)

	executionOrder, hadCycle := determineExecutionOrder(pipelineIDs, dependencies, logger)

	edgesAdded := 0

	for _, dep := range dependencies {
		edge := model.NewEdge(dep.ReaderPackage, dep.WriterPackage, model.RelationDependsOn).
			WithProperty("dependency_type", dep.DependencyType).
			WithProperty("shared_resource", dep.SharedResource).
			WithProperty("shared_resource_name", dep.SharedResourceName).
			WithProperty("description", dep.Description)
		if err := client.WriteEdge(ctx, edge); err != nil {
			logger.Warn("analysis.edge.depends_on.failed", "reader", dep.ReaderPackage, "writer", dep.WriterPackage, "err", err)
			continue
		}
		edgesAdded++
	}

	for id, sc := range sharedConnections {
		added, err := writeSharesResourceEdges(ctx, client, sc.Packages, "connection", id, sc.ConnectionName, sc.ContentionRisk, logger)
		if err != nil {
			return nil, err
		}
		edgesAdded += added
	}
	for id, sp := range sharedParameters {
		added, err := writeSharesResourceEdges(ctx, client, sp.Packages, "parameter", id, sp.ParameterName, "", logger)
		if err != nil {
			return nil, err
		}
		edgesAdded += added
	}

	annotatePipelines(ctx, client, pipelineIDs, executionOrder, dependencies, sharedTables, sharedConnections, logger)

	report := &Report{
		PackagesAnalyzed:       len(pipelines),
		SharedTables:           sharedTables,
		SharedConnections:      sharedConnections,
		SharedParameters:       sharedParameters,
		DataDependencies:       dependencies,
		ExecutionOrder:         executionOrder,
		CrossPackageEdgesAdded: edgesAdded,
		ContentionRisks:        contentionRisks(sharedConnections, sharedTables),
	}

	logger.Info("analysis.complete",
		"packages", report.PackagesAnalyzed,
		"shared_tables", len(sharedTables),
		"shared_connections", len(sharedConnections),
		"shared_parameters", len(sharedParameters),
		"dependencies", len(dependencies),
		"levels", len(executionOrder),
		"edges_added", edgesAdded,
	)
	metrics.RecordAnalysisRun(len(sharedTables), len(sharedConnections), edgesAdded, hadCycle, time.Since(start))

	return report, nil
}

func ensureUsage(m map[string]*resourceUsage, id, name string) *resourceUsage {
	u, ok := m[id]
	if !ok {
		u = newResourceUsage(name)
		m[id] = u
	}
	return u
}

func nodeName(nodes []*model.Node, id string) string {
	for _, n := range nodes {
		if n.ID == id {
			if n.Name != "" {
				return n.Name
			}
			return id
		}
	}
	return id
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// dataFlowDependencies derives one Dependency per (writer pipeline, reader
// pipeline) pair for every integration table: every table with at least one
// writer operation and one reader operation, across distinct pipelines.
func dataFlowDependencies(sharedTables map[string]SharedTable, operationPipeline map[string]string, _ []*model.Edge) []Dependency {
	var tableIDs []string
	for id := range sharedTables {
		tableIDs = append(tableIDs, id)
	}
	sort.Strings(tableIDs)

	var deps []Dependency
	for _, tableID := range tableIDs {
		table := sharedTables[tableID]
		if !table.IsIntegrationPoint {
			continue
		}
		writerPkgs := make(map[string]struct{})
		for _, op := range table.Writers {
			if pkg, ok := operationPipeline[op]; ok {
				writerPkgs[pkg] = struct{}{}
			}
		}
		readerPkgs := make(map[string]struct{})
		for _, op := range table.Readers {
			if pkg, ok := operationPipeline[op]; ok {
				readerPkgs[pkg] = struct{}{}
			}
		}

		writers := sortedKeys(writerPkgs)
		readers := sortedKeys(readerPkgs)
		for _, writerPkg := range writers {
			for _, readerPkg := range readers {
				if writerPkg == readerPkg {
					continue
				}
				deps = append(deps, Dependency{
					WriterPackage:      writerPkg,
					ReaderPackage:      readerPkg,
					DependencyType:     "data_flow",
					SharedResource:     tableID,
					SharedResourceName: table.TableName,
					Description:        fmt.Sprintf("%s must complete before %s (via %s)", writerPkg, readerPkg, table.TableName),
				})
			}
		}
	}
	return deps
}

// determineExecutionOrder peels off pipelines with zero remaining in-degree
// (no un-run writer they depend on) one level at a time. A cycle flushes
// every remaining pipeline into one final level with a warning, rather than
// failing the whole analysis.
func determineExecutionOrder(pipelineIDs map[string]struct{}, dependencies []Dependency, logger *slog.Logger) ([][]string, bool) {
	if logger == nil {
		logger = slog.Default()
	}
	remaining := make(map[string]struct{}, len(pipelineIDs))
	for id := range pipelineIDs {
		remaining[id] = struct{}{}
	}

	// outEdges[writer] -> readers that depend on it completing first.
	outEdges := make(map[string][]string)
	inDegree := make(map[string]int)
	for id := range remaining {
		inDegree[id] = 0
	}
	for _, dep := range dependencies {
		if _, ok := remaining[dep.WriterPackage]; !ok {
			continue
		}
		if _, ok := remaining[dep.ReaderPackage]; !ok {
			continue
		}
		outEdges[dep.WriterPackage] = append(outEdges[dep.WriterPackage], dep.ReaderPackage)
		inDegree[dep.ReaderPackage]++
	}

	if len(dependencies) == 0 {
		all := sortedKeys(remaining)
		if len(all) == 0 {
			return nil, false
		}
		return [][]string{all}, false
	}

	var levels [][]string
	hadCycle := false
	for len(remaining) > 0 {
		var current []string
		for id := range remaining {
			if inDegree[id] == 0 {
				current = append(current, id)
			}
		}
		if len(current) == 0 {
			logger.Warn("analysis.execution_order.cycle_detected")
			levels = append(levels, sortedKeys(remaining))
			hadCycle = true
			break
		}
		sort.Strings(current)
		levels = append(levels, current)

		for _, id := range current {
			delete(remaining, id)
			for _, next := range outEdges[id] {
				inDegree[next]--
			}
		}
	}
	return levels, hadCycle
}

func writeSharesResourceEdges(ctx context.Context, client graph.Client, packages []string, resourceType, resourceID, resourceName, contentionRisk string, logger *slog.Logger) (int, error) {
	added := 0
	for i, pkg1 := range packages {
		for _, pkg2 := range packages[i+1:] {
			edge := model.NewEdge(pkg1, pkg2, model.RelationSharesResource).
				WithProperty("resource_type", resourceType).
				WithProperty("shared_resource", resourceID).
				WithProperty("resource_name", resourceName)
			if contentionRisk != "" {
				edge.WithProperty("contention_risk", contentionRisk)
			}
			if err := client.WriteEdge(ctx, edge); err != nil {
				logger.Warn("analysis.edge.shares_resource.failed", "a", pkg1, "b", pkg2, "resource", resourceID, "err", err)
				continue
			}
			added++
		}
	}
	return added, nil
}

func annotatePipelines(
	ctx context.Context,
	client graph.Client,
	pipelineIDs map[string]struct{},
	executionOrder [][]string,
	dependencies []Dependency,
	sharedTables map[string]SharedTable,
	sharedConnections map[string]SharedConnection,
	logger *slog.Logger,
) {
	priority := make(map[string]int)
	for level, group := range executionOrder {
		for _, id := range group {
			priority[id] = level + 1
		}
	}

	upstream := make(map[string]map[string]struct{})
	downstream := make(map[string]map[string]struct{})
	for _, dep := range dependencies {
		if upstream[dep.ReaderPackage] == nil {
			upstream[dep.ReaderPackage] = make(map[string]struct{})
		}
		upstream[dep.ReaderPackage][dep.WriterPackage] = struct{}{}
		if downstream[dep.WriterPackage] == nil {
			downstream[dep.WriterPackage] = make(map[string]struct{})
		}
		downstream[dep.WriterPackage][dep.ReaderPackage] = struct{}{}
	}

	for id := range pipelineIDs {
		p := priority[id]
		if p == 0 {
			p = 1
		}

		var tablesUsed []string
		for tableID, t := range sharedTables {
			for _, pkg := range t.Packages {
				if pkg == id {
					tablesUsed = append(tablesUsed, tableID)
					break
				}
			}
		}
		sort.Strings(tablesUsed)

		var connsUsed []string
		for connID, c := range sharedConnections {
			for _, pkg := range c.Packages {
				if pkg == id {
					connsUsed = append(connsUsed, connID)
					break
				}
			}
		}
		sort.Strings(connsUsed)

		node := model.NewNode(id, model.KindPipeline, "").
			WithProperty("execution_priority", p).
			WithProperty("upstream_dependencies", sortedKeys(upstream[id])).
			WithProperty("downstream_dependencies", sortedKeys(downstream[id])).
			WithProperty("shared_tables_used", tablesUsed).
			WithProperty("shared_connections_used", connsUsed).
			WithProperty("cross_package_analysis_complete", true)

		if err := client.WriteNode(ctx, node); err != nil {
			logger.Warn("analysis.pipeline.annotate.failed", "pipeline", id, "err", err)
		}
	}
}

// contentionRisks flags the resources most likely to create scheduling
// contention: connections shared by more than 3 packages, integration
// tables shared by more than 2.
func contentionRisks(sharedConnections map[string]SharedConnection, sharedTables map[string]SharedTable) ContentionRisks {
	var risks ContentionRisks
	risks.TotalSharedConnections = len(sharedConnections)
	risks.TotalSharedTables = len(sharedTables)

	var connIDs []string
	for id := range sharedConnections {
		connIDs = append(connIDs, id)
	}
	sort.Strings(connIDs)
	for _, id := range connIDs {
		c := sharedConnections[id]
		if len(c.Packages) > 3 {
			risks.HighRiskConnections = append(risks.HighRiskConnections, c)
		}
	}

	var tableIDs []string
	for id := range sharedTables {
		tableIDs = append(tableIDs, id)
	}
	sort.Strings(tableIDs)
	for _, id := range tableIDs {
		t := sharedTables[id]
		if t.IsIntegrationPoint && len(t.Packages) > 2 {
			risks.HighContentionTables = append(risks.HighContentionTables, t)
		}
	}

	return risks
}

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

package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/metazcode/mzc/pkg/model"
)

// PrepareForApplications builds the seven materialized views and the
// graph_metadata readiness node that downstream migration, compliance, and
// governance applications query directly instead of re-deriving from raw
// nodes and edges on every request. It works against either backend, since
// it reads the graph only through Client.GetAllNodes/GetAllEdges rather than
// backend-specific queries. Idempotent: each view is deleted and rebuilt
// from the graph's current state, so it is safe to call again after more
// ingestion or analysis runs.
func PrepareForApplications(ctx context.Context, client Client) error {
	nodes, err := client.GetAllNodes(ctx)
	if err != nil {
		return fmt.Errorf("load nodes: %w", err)
	}
	edges, err := client.GetAllEdges(ctx)
	if err != nil {
		return fmt.Errorf("load edges: %w", err)
	}

	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	views := map[string]any{
		"sql_operations_catalog":     buildSQLOperationsView(nodes),
		"cross_package_dependencies": buildDependenciesView(edges, byID),
		"shared_resources_analysis":  buildSharedResourcesView(nodes, edges, byID),
		"data_lineage_catalog":       buildLineageView(edges, byID),
		"business_rules_catalog":     buildBusinessRulesView(nodes),
		"graph_summary_stats":        buildSummaryStatsView(nodes, edges),
		"complexity_metrics":         buildComplexityMetricsView(nodes, edges),
	}

	for name, data := range views {
		if err := storeMaterializedView(ctx, client, name, data); err != nil {
			return fmt.Errorf("store view %s: %w", name, err)
		}
	}

	return storeGraphMetadata(ctx, client, len(nodes), len(edges), len(views))
}

// buildSQLOperationsView catalogs every operation carrying a
// sql_transformation property (SSIS Execute SQL tasks and OLE DB Command
// dataflow components), the shape ssis.parser writes it in.
func buildSQLOperationsView(nodes []*model.Node) []map[string]any {
	var catalog []map[string]any
	for _, n := range nodes {
		if n.Kind != model.KindOperation {
			continue
		}
		sqlInfo, ok := n.Properties["sql_transformation"].(map[string]any)
		if !ok {
			continue
		}
		sqlQuery, _ := sqlInfo["sql_query"].(string)
		affected, _ := sqlInfo["affected_tables"].([]map[string]any)
		params, _ := sqlInfo["parameters"].([]map[string]any)

		catalog = append(catalog, map[string]any{
			"operation_id":   n.ID,
			"operation_name": n.Name,
			"sql_type":       sqlInfo["query_type"],
			"affected_tables": affected,
			"has_parameters": len(params) > 0,
			"complexity_indicators": map[string]any{
				"table_count":     len(affected),
				"has_joins":       strings.Contains(strings.ToUpper(sqlQuery), "JOIN"),
				"has_subqueries":  strings.Count(strings.ToUpper(sqlQuery), "SELECT") > 1,
				"parameter_count": len(params),
			},
			"raw_sql":    sqlQuery,
			"technology": n.Properties["technology"],
		})
	}
	return catalog
}

// buildDependenciesView lists pipeline-to-pipeline depends_on edges, the
// edges cross-package analysis emits for shared-table usage.
func buildDependenciesView(edges []*model.Edge, byID map[string]*model.Node) []map[string]any {
	var deps []map[string]any
	for _, e := range edges {
		if e.Relation != model.RelationDependsOn {
			continue
		}
		source, target := byID[e.SourceID], byID[e.TargetID]
		if source == nil || target == nil || source.Kind != model.KindPipeline || target.Kind != model.KindPipeline {
			continue
		}
		deps = append(deps, map[string]any{
			"source_package":    source.Name,
			"target_package":    target.Name,
			"dependency_type":   e.Properties["dependency_type"],
			"shared_resources":  e.Properties["shared_resource"],
		})
	}
	return deps
}

// buildSharedResourcesView finds tables/data assets reached by more than one
// pipeline's reads_from/writes_to edges, the candidates cross-package
// analysis scores for contention risk.
func buildSharedResourcesView(nodes []*model.Node, edges []*model.Edge, byID map[string]*model.Node) []map[string]any {
	containingPipeline := make(map[string]string) // operation id -> pipeline id
	for _, e := range edges {
		if e.Relation == model.RelationContains {
			if p, ok := byID[e.SourceID]; ok && p.Kind == model.KindPipeline {
				containingPipeline[e.TargetID] = e.SourceID
			}
		}
	}

	packagesByResource := make(map[string]map[string]struct{})
	opsByResource := make(map[string]map[string]struct{})
	for _, e := range edges {
		if e.Relation != model.RelationReadsFrom && e.Relation != model.RelationWritesTo {
			continue
		}
		resource, ok := byID[e.TargetID]
		if !ok || (resource.Kind != model.KindTable && resource.Kind != model.KindDataAsset) {
			continue
		}
		op := e.SourceID
		pipelineID, ok := containingPipeline[op]
		if !ok {
			continue
		}
		pipeline := byID[pipelineID]
		if pipeline == nil {
			continue
		}

		if packagesByResource[resource.ID] == nil {
			packagesByResource[resource.ID] = make(map[string]struct{})
			opsByResource[resource.ID] = make(map[string]struct{})
		}
		packagesByResource[resource.ID][pipeline.Name] = struct{}{}
		if opNode := byID[op]; opNode != nil {
			opsByResource[resource.ID][opNode.Name] = struct{}{}
		}
	}

	var out []map[string]any
	for _, n := range nodes {
		if n.Kind != model.KindTable && n.Kind != model.KindDataAsset {
			continue
		}
		pkgSet := packagesByResource[n.ID]
		if len(pkgSet) <= 1 {
			continue
		}
		packages := setToSlice(pkgSet)
		operations := setToSlice(opsByResource[n.ID])
		count := len(packages)

		risk := "LOW"
		if count > 3 {
			risk = "HIGH"
		} else if count > 1 {
			risk = "MEDIUM"
		}

		out = append(out, map[string]any{
			"resource_id":          n.ID,
			"resource_name":        n.Name,
			"sharing_packages":     packages,
			"accessing_operations": operations,
			"package_count":        count,
			"contention_risk":      risk,
			"resource_type":        string(n.Kind),
		})
	}
	return out
}

func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

// buildLineageView flattens every reads_from/writes_to edge into a flat
// source->target lineage record for compliance/audit applications.
func buildLineageView(edges []*model.Edge, byID map[string]*model.Node) []map[string]any {
	var lineage []map[string]any
	for _, e := range edges {
		if e.Relation != model.RelationReadsFrom && e.Relation != model.RelationWritesTo {
			continue
		}
		source, target := byID[e.SourceID], byID[e.TargetID]
		if source == nil || target == nil {
			continue
		}
		direction := "upstream"
		if e.Relation == model.RelationWritesTo {
			direction = "downstream"
		}
		lineage = append(lineage, map[string]any{
			"source_id":          source.ID,
			"source_name":        source.Name,
			"source_type":        string(source.Kind),
			"relationship_type":  string(e.Relation),
			"target_id":          target.ID,
			"target_name":        target.Name,
			"target_type":        string(target.Kind),
			"lineage_direction":  direction,
		})
	}
	return lineage
}

// buildBusinessRulesView collects operations carrying conditional_split,
// derived_column_expressions, or lookups properties into a single catalog
// of the conditional/derivation logic embedded in each pipeline, the way
// compliance reviewers need to enumerate "what business rules run here."
func buildBusinessRulesView(nodes []*model.Node) []map[string]any {
	var out []map[string]any
	for _, n := range nodes {
		if n.Kind != model.KindOperation {
			continue
		}

		var rules []map[string]any

		if conditions, ok := n.Properties["conditional_split"].([]map[string]any); ok {
			for _, c := range conditions {
				if c["is_default"] == true {
					continue
				}
				rules = append(rules, map[string]any{
					"rule_type":  "conditional_split",
					"expression": c["expression"],
					"output_name": c["output_name"],
					"description": fmt.Sprintf("Route data to %v when %v", c["output_name"], c["expression"]),
				})
			}
		}

		if derived, ok := n.Properties["derived_column_expressions"].(map[string]any); ok {
			if expressions, ok := derived["expressions"].([]map[string]any); ok {
				for _, expr := range expressions {
					rules = append(rules, map[string]any{
						"rule_type":   "derived_column",
						"expression":  expr["expression"],
						"column_name": expr["column_name"],
						"description": fmt.Sprintf("Calculate %v as %v", expr["column_name"], expr["expression"]),
					})
				}
			}
		}

		if lookups, ok := n.Properties["lookups"].([]any); ok {
			for _, raw := range lookups {
				lookup, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				rules = append(rules, map[string]any{
					"rule_type":   "lookup",
					"expression":  lookup["sql_command"],
					"column_name": lookup["lookup_name"],
					"description": fmt.Sprintf("Enrich rows via lookup %v", lookup["lookup_name"]),
				})
			}
		}

		if len(rules) > 0 {
			out = append(out, map[string]any{
				"operation_id":   n.ID,
				"operation_name": n.Name,
				"rules":          rules,
				"rule_count":     len(rules),
			})
		}
	}
	return out
}

// buildSummaryStatsView tallies node/edge counts per kind for governance
// dashboards.
func buildSummaryStatsView(nodes []*model.Node, edges []*model.Edge) []map[string]any {
	byKind := make(map[model.Kind]int)
	for _, n := range nodes {
		byKind[n.Kind]++
	}

	return []map[string]any{{
		"metric_name": "graph_summary",
		"statistics": map[string]any{
			"total_nodes": len(nodes),
			"total_edges": len(edges),
			"pipelines":   byKind[model.KindPipeline],
			"operations":  byKind[model.KindOperation],
			"tables":      byKind[model.KindTable] + byKind[model.KindDataAsset],
			"connections": byKind[model.KindConnection],
		},
		"version": "1.0",
	}}
}

// buildComplexityMetricsView scores overall system complexity for migration
// planning: more packages, operations, cross-package dependencies, and
// shared resources all push the score up.
func buildComplexityMetricsView(nodes []*model.Node, edges []*model.Edge) []map[string]any {
	packageCount, operationCount, dependencyCount := 0, 0, 0
	for _, n := range nodes {
		switch n.Kind {
		case model.KindPipeline:
			packageCount++
		case model.KindOperation:
			operationCount++
		}
	}
	for _, e := range edges {
		if e.Relation == model.RelationDependsOn {
			dependencyCount++
		}
	}
	sharedResourceCount := len(buildSharedResourcesView(nodes, edges, indexByID(nodes)))

	score := float64(packageCount) + float64(operationCount)/10 + float64(dependencyCount)*2 + float64(sharedResourceCount)*1.5

	return []map[string]any{{
		"metric_name":                "system_complexity",
		"package_count":              packageCount,
		"operation_count":            operationCount,
		"cross_package_dependencies": dependencyCount,
		"shared_resource_count":      sharedResourceCount,
		"complexity_score":           score,
	}}
}

func indexByID(nodes []*model.Node) map[string]*model.Node {
	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	return byID
}

// storeMaterializedView persists view as a materialized_view node keyed
// "view:<name>", merging over whatever that view held before (WriteNode's
// MERGE semantics already give us the delete-then-recreate behavior the
// Python client implemented as an explicit DELETE+CREATE pair).
func storeMaterializedView(ctx context.Context, client Client, name string, data any) error {
	node := model.NewNode("view:"+name, model.KindMaterializedView, name).
		WithProperty("view_name", name).
		WithProperty("data", data)
	return client.WriteNode(ctx, node)
}

// storeGraphMetadata writes the single graph_metadata node applications
// probe to confirm analytics views are present and current before querying
// them.
func storeGraphMetadata(ctx context.Context, client Client, nodeCount, edgeCount, viewCount int) error {
	node := model.NewNode("metadata:graph", model.KindGraphMetadata, "graph_metadata").
		WithProperty("node_count", nodeCount).
		WithProperty("edge_count", edgeCount).
		WithProperty("view_count", viewCount).
		WithProperty("analytics_ready", true)
	return client.WriteNode(ctx, node)
}

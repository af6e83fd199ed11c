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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metazcode/mzc/pkg/model"
)

// buildSharedGraph constructs two pipelines that both read/write a shared
// "customers" table plus one pipeline-only table, and one operation with a
// sql_transformation, conditional_split, and lookups property to exercise
// every view builder in a single fixture.
func buildSharedGraph(t *testing.T, ctx context.Context, c Client) {
	t.Helper()

	pipelineA := model.NewNode("pipeline:a", model.KindPipeline, "PkgA")
	pipelineB := model.NewNode("pipeline:b", model.KindPipeline, "PkgB")
	require.NoError(t, c.WriteNode(ctx, pipelineA))
	require.NoError(t, c.WriteNode(ctx, pipelineB))

	opA := model.NewNode("op:a1", model.KindOperation, "LoadCustomers").
		WithProperty("technology", "SSIS").
		WithProperty("sql_transformation", map[string]any{
			"sql_query":       "SELECT * FROM dbo.customers JOIN dbo.orders ON 1=1",
			"query_type":      "SELECT",
			"affected_tables": []map[string]any{{"schema": "dbo", "table": "customers", "full_name": "dbo.customers"}},
			"parameters":      []map[string]any{},
		}).
		WithProperty("conditional_split", []map[string]any{
			{"output_name": "Valid", "expression": "Amount > 0", "is_default": false},
			{"output_name": "Default", "is_default": true},
		})
	opB := model.NewNode("op:b1", model.KindOperation, "LoadCustomersAgain")
	require.NoError(t, c.WriteNode(ctx, opA))
	require.NoError(t, c.WriteNode(ctx, opB))

	customers := model.NewNode("table:customers", model.KindTable, "customers")
	onlyA := model.NewNode("table:a_only", model.KindTable, "a_only")
	require.NoError(t, c.WriteNode(ctx, customers))
	require.NoError(t, c.WriteNode(ctx, onlyA))

	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(pipelineA.ID, opA.ID, model.RelationContains)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(pipelineB.ID, opB.ID, model.RelationContains)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(opA.ID, customers.ID, model.RelationWritesTo)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(opB.ID, customers.ID, model.RelationWritesTo)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(opA.ID, onlyA.ID, model.RelationWritesTo)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(pipelineA.ID, pipelineB.ID, model.RelationDependsOn).WithProperty("dependency_type", "shared_table")))
}

func TestPrepareForApplicationsBuildsSevenViewsAndMetadata(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	buildSharedGraph(t, ctx, c)

	require.NoError(t, PrepareForApplications(ctx, c))

	views, err := c.GetNodesByKind(ctx, model.KindMaterializedView)
	require.NoError(t, err)
	assert.Len(t, views, 7)

	metadata, err := c.GetNode(ctx, "metadata:graph")
	require.NoError(t, err)
	require.NotNil(t, metadata)
	assert.Equal(t, true, metadata.Properties["analytics_ready"])
	assert.Equal(t, 7, metadata.Properties["view_count"])
}

func TestSharedResourcesViewFlagsOnlyMultiPipelineTables(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	buildSharedGraph(t, ctx, c)

	nodes, err := c.GetAllNodes(ctx)
	require.NoError(t, err)
	edges, err := c.GetAllEdges(ctx)
	require.NoError(t, err)

	shared := buildSharedResourcesView(nodes, edges, indexByID(nodes))
	require.Len(t, shared, 1)
	assert.Equal(t, "customers", shared[0]["resource_name"])
	assert.Equal(t, 2, shared[0]["package_count"])
	assert.Equal(t, "MEDIUM", shared[0]["contention_risk"])
}

func TestSQLOperationsViewExtractsJoinAndTableCount(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	buildSharedGraph(t, ctx, c)

	nodes, err := c.GetAllNodes(ctx)
	require.NoError(t, err)

	catalog := buildSQLOperationsView(nodes)
	require.Len(t, catalog, 1)
	indicators := catalog[0]["complexity_indicators"].(map[string]any)
	assert.Equal(t, true, indicators["has_joins"])
	assert.Equal(t, 1, indicators["table_count"])
}

func TestBusinessRulesViewSkipsDefaultBranch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	buildSharedGraph(t, ctx, c)

	nodes, err := c.GetAllNodes(ctx)
	require.NoError(t, err)

	rules := buildBusinessRulesView(nodes)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, rules[0]["rule_count"])
}

func TestPrepareForApplicationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()
	buildSharedGraph(t, ctx, c)

	require.NoError(t, PrepareForApplications(ctx, c))
	require.NoError(t, PrepareForApplications(ctx, c))

	views, err := c.GetNodesByKind(ctx, model.KindMaterializedView)
	require.NoError(t, err)
	assert.Len(t, views, 7)
}

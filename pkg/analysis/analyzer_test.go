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

package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/model"
)

// buildScenarioD wires up spec.md's worked example: pipeline P1 contains an
// operation writing table T, pipeline P2 contains an operation reading T.
func buildScenarioD(t *testing.T, ctx context.Context, c graph.Client) {
	t.Helper()

	p1 := model.NewNode("pipeline:p1", model.KindPipeline, "P1")
	p2 := model.NewNode("pipeline:p2", model.KindPipeline, "P2")
	require.NoError(t, c.WriteNode(ctx, p1))
	require.NoError(t, c.WriteNode(ctx, p2))

	opWrite := model.NewNode("op:p1-write", model.KindOperation, "WriteT")
	opRead := model.NewNode("op:p2-read", model.KindOperation, "ReadT")
	require.NoError(t, c.WriteNode(ctx, opWrite))
	require.NoError(t, c.WriteNode(ctx, opRead))

	table := model.NewNode("table:t", model.KindTable, "T")
	require.NoError(t, c.WriteNode(ctx, table))

	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(p1.ID, opWrite.ID, model.RelationContains)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(p2.ID, opRead.ID, model.RelationContains)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(opWrite.ID, table.ID, model.RelationWritesTo)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(opRead.ID, table.ID, model.RelationReadsFrom)))
}

func TestAnalyzeScenarioDDependsOnEdgeAndPriorities(t *testing.T) {
	ctx := context.Background()
	c := graph.NewMemoryClient()
	buildScenarioD(t, ctx, c)

	report, err := Analyze(ctx, c, nil)
	require.NoError(t, err)

	require.Len(t, report.DataDependencies, 1)
	dep := report.DataDependencies[0]
	assert.Equal(t, "pipeline:p1", dep.WriterPackage)
	assert.Equal(t, "pipeline:p2", dep.ReaderPackage)
	assert.Equal(t, "table:t", dep.SharedResource)

	edges, err := c.GetAllEdges(ctx)
	require.NoError(t, err)
	var found *model.Edge
	for _, e := range edges {
		if e.Relation == model.RelationDependsOn {
			found = e
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "pipeline:p2", found.SourceID, "reader depends on writer")
	assert.Equal(t, "pipeline:p1", found.TargetID)
	assert.Equal(t, "data_flow", found.Properties["dependency_type"])

	p1, err := c.GetNode(ctx, "pipeline:p1")
	require.NoError(t, err)
	p2, err := c.GetNode(ctx, "pipeline:p2")
	require.NoError(t, err)
	assert.Equal(t, 1, p1.Properties["execution_priority"])
	assert.Equal(t, 2, p2.Properties["execution_priority"])
	assert.Equal(t, true, p1.Properties["cross_package_analysis_complete"])
	assert.Equal(t, []string{"pipeline:p1"}, p2.Properties["upstream_dependencies"])
	assert.Equal(t, []string{"pipeline:p2"}, p1.Properties["downstream_dependencies"])
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := graph.NewMemoryClient()
	buildScenarioD(t, ctx, c)

	_, err := Analyze(ctx, c, nil)
	require.NoError(t, err)
	firstEdgeCount, err := c.GetEdgeCount(ctx)
	require.NoError(t, err)

	report2, err := Analyze(ctx, c, nil)
	require.NoError(t, err)
	secondEdgeCount, err := c.GetEdgeCount(ctx)
	require.NoError(t, err)

	assert.Equal(t, firstEdgeCount, secondEdgeCount, "re-running analysis adds zero new edges")
	assert.Len(t, report2.DataDependencies, 1)
}

func TestAnalyzeNonIntegrationTableProducesNoDependency(t *testing.T) {
	ctx := context.Background()
	c := graph.NewMemoryClient()

	p1 := model.NewNode("pipeline:p1", model.KindPipeline, "P1")
	p2 := model.NewNode("pipeline:p2", model.KindPipeline, "P2")
	require.NoError(t, c.WriteNode(ctx, p1))
	require.NoError(t, c.WriteNode(ctx, p2))

	op1 := model.NewNode("op:1", model.KindOperation, "Write1")
	op2 := model.NewNode("op:2", model.KindOperation, "Write2")
	require.NoError(t, c.WriteNode(ctx, op1))
	require.NoError(t, c.WriteNode(ctx, op2))

	table := model.NewNode("table:t", model.KindTable, "T")
	require.NoError(t, c.WriteNode(ctx, table))

	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(p1.ID, op1.ID, model.RelationContains)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(p2.ID, op2.ID, model.RelationContains)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(op1.ID, table.ID, model.RelationWritesTo)))
	require.NoError(t, c.WriteEdge(ctx, model.NewEdge(op2.ID, table.ID, model.RelationWritesTo)))

	report, err := Analyze(ctx, c, nil)
	require.NoError(t, err)

	require.Len(t, report.SharedTables, 1)
	assert.False(t, report.SharedTables["table:t"].IsIntegrationPoint)
	assert.Empty(t, report.DataDependencies)
}

func TestAnalyzeSharedConnectionRiskThresholds(t *testing.T) {
	ctx := context.Background()
	c := graph.NewMemoryClient()

	conn := model.NewNode("connection:shared", model.KindConnection, "SharedConn")
	require.NoError(t, c.WriteNode(ctx, conn))

	var pipelineIDs []string
	for i := 0; i < 4; i++ {
		pid := "pipeline:" + string(rune('a'+i))
		p := model.NewNode(pid, model.KindPipeline, pid)
		require.NoError(t, c.WriteNode(ctx, p))
		op := model.NewNode("op:"+string(rune('a'+i)), model.KindOperation, "op")
		require.NoError(t, c.WriteNode(ctx, op))
		require.NoError(t, c.WriteEdge(ctx, model.NewEdge(p.ID, op.ID, model.RelationContains)))
		require.NoError(t, c.WriteEdge(ctx, model.NewEdge(op.ID, conn.ID, model.RelationUsesConnection)))
		pipelineIDs = append(pipelineIDs, pid)
	}

	report, err := Analyze(ctx, c, nil)
	require.NoError(t, err)

	require.Contains(t, report.SharedConnections, "connection:shared")
	sc := report.SharedConnections["connection:shared"]
	assert.Equal(t, "HIGH", sc.ContentionRisk, "4 packages exceeds the >3 threshold")
	assert.Len(t, sc.Packages, 4)
	assert.Len(t, report.ContentionRisks.HighRiskConnections, 1)

	edges, err := c.GetAllEdges(ctx)
	require.NoError(t, err)
	sharesCount := 0
	for _, e := range edges {
		if e.Relation == model.RelationSharesResource {
			sharesCount++
		}
	}
	assert.Equal(t, 6, sharesCount, "C(4,2) pairs among the 4 sharing pipelines")
}

func TestAnalyzeNoDependenciesYieldsSingleParallelLevel(t *testing.T) {
	ctx := context.Background()
	c := graph.NewMemoryClient()

	p1 := model.NewNode("pipeline:p1", model.KindPipeline, "P1")
	p2 := model.NewNode("pipeline:p2", model.KindPipeline, "P2")
	require.NoError(t, c.WriteNode(ctx, p1))
	require.NoError(t, c.WriteNode(ctx, p2))

	report, err := Analyze(ctx, c, nil)
	require.NoError(t, err)
	require.Len(t, report.ExecutionOrder, 1)
	assert.ElementsMatch(t, []string{"pipeline:p1", "pipeline:p2"}, report.ExecutionOrder[0])
}

func TestDetermineExecutionOrderFlushesCycleIntoFinalLevel(t *testing.T) {
	pipelineIDs := map[string]struct{}{"a": {}, "b": {}}
	deps := []Dependency{
		{WriterPackage: "a", ReaderPackage: "b"},
		{WriterPackage: "b", ReaderPackage: "a"},
	}

	order, hadCycle := determineExecutionOrder(pipelineIDs, deps, nil)
	require.Len(t, order, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, order[0])
	assert.True(t, hadCycle)
}

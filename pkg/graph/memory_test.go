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

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/model"
)

func TestMemoryClientWriteNodeMergesOnSecondWrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	n1 := model.NewNode("pipeline:sales", model.KindPipeline, "sales").WithProperty("technology", "SSIS")
	require.NoError(t, c.WriteNode(ctx, n1))

	n2 := model.NewNode("pipeline:sales", model.KindPipeline, "sales").WithProperty("is_valid", true)
	require.NoError(t, c.WriteNode(ctx, n2))

	got, err := c.GetNode(ctx, "pipeline:sales")
	require.NoError(t, err)
	assert.Equal(t, "SSIS", got.Properties["technology"])
	assert.Equal(t, true, got.Properties["is_valid"])

	count, err := c.GetNodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryClientWriteEdgeFailsOnMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	require.NoError(t, c.WriteNode(ctx, model.NewNode("pipeline:a", model.KindPipeline, "a")))

	edge := model.NewEdge("pipeline:a", "pipeline:ghost", model.RelationDependsOn)
	err := c.WriteEdge(ctx, edge)
	require.Error(t, err)

	var missing *mzerrors.MissingEndpoint
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "target", missing.Missing)
}

func TestMemoryClientWriteEdgeMergesByKey(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	require.NoError(t, c.WriteNode(ctx, model.NewNode("op:1", model.KindOperation, "op1")))
	require.NoError(t, c.WriteNode(ctx, model.NewNode("table:sales", model.KindTable, "sales")))

	e1 := model.NewEdge("op:1", "table:sales", model.RelationWritesTo).WithProperty("via", "ole_db")
	require.NoError(t, c.WriteEdge(ctx, e1))

	e2 := model.NewEdge("op:1", "table:sales", model.RelationWritesTo).WithProperty("batch_size", 500)
	require.NoError(t, c.WriteEdge(ctx, e2))

	edges, err := c.GetAllEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "ole_db", edges[0].Properties["via"])
	assert.Equal(t, 500, edges[0].Properties["batch_size"])

	edgeCount, err := c.GetEdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, edgeCount)
}

func TestMemoryClientGetNodesByKind(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	require.NoError(t, c.WriteNode(ctx, model.NewNode("pipeline:a", model.KindPipeline, "a")))
	require.NoError(t, c.WriteNode(ctx, model.NewNode("pipeline:b", model.KindPipeline, "b")))
	require.NoError(t, c.WriteNode(ctx, model.NewNode("table:t", model.KindTable, "t")))

	pipelines, err := c.GetNodesByKind(ctx, model.KindPipeline)
	require.NoError(t, err)
	assert.Len(t, pipelines, 2)
}

func TestMemoryClientAddNodesAndEdgesBatch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	nodes := []*model.Node{
		model.NewNode("op:1", model.KindOperation, "op1"),
		model.NewNode("table:sales", model.KindTable, "sales"),
	}
	require.NoError(t, c.AddNodes(ctx, nodes))

	edges := []*model.Edge{
		model.NewEdge("op:1", "table:sales", model.RelationWritesTo),
	}
	require.NoError(t, c.AddEdges(ctx, edges))

	n, err := c.GetNodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	e, err := c.GetEdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, e)
}

func TestMemoryClientGetNodeMissingReturnsNilNotError(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	n, err := c.GetNode(ctx, "pipeline:nope")
	require.NoError(t, err)
	assert.Nil(t, n)
}

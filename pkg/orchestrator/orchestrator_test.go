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

package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/typemap"
)

func fakeTool(kind string, node *model.Node) Tool {
	return Tool{
		Kind: kind,
		Parse: func(string, []typemap.TargetPlatform) ([]*model.Node, []*model.Edge, error) {
			return []*model.Node{node}, nil, nil
		},
	}
}

func failingTool(kind string) Tool {
	return Tool{
		Kind: kind,
		Parse: func(string, []typemap.TargetPlatform) ([]*model.Node, []*model.Edge, error) {
			return nil, nil, errors.New("boom")
		},
	}
}

// unavailableClient always fails AddNodes with *errors.BackendUnavailable,
// simulating a remote graph backend that cannot be reached.
type unavailableClient struct{ graph.Client }

func (unavailableClient) AddNodes(context.Context, []*model.Node) error {
	return mzerrors.NewBackendUnavailable("bolt://down", errors.New("connection refused"))
}

func TestRunToolsWritesAllToolsOutputInOrder(t *testing.T) {
	ctx := context.Background()
	client := graph.NewMemoryClient()

	tools := []Tool{
		fakeTool("ssis", model.NewNode("pipeline:a", model.KindPipeline, "a")),
		fakeTool("informatica", model.NewNode("pipeline:b", model.KindPipeline, "b")),
	}

	activeClient, result, err := RunTools(ctx, client, "/some/root", nil, tools, nil)
	require.NoError(t, err)
	assert.Same(t, client, activeClient)
	assert.Equal(t, 2, result.NodesWritten)
	assert.False(t, result.FellBackToMem)

	count, err := client.GetNodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunToolsContinuesAfterOneToolFails(t *testing.T) {
	ctx := context.Background()
	client := graph.NewMemoryClient()

	tools := []Tool{
		failingTool("ssis"),
		fakeTool("informatica", model.NewNode("pipeline:b", model.KindPipeline, "b")),
	}

	_, result, err := RunTools(ctx, client, "/some/root", nil, tools, nil)
	require.NoError(t, err)
	require.Len(t, result.ToolResults, 2)
	assert.Error(t, result.ToolResults[0].Err)
	assert.NoError(t, result.ToolResults[1].Err)
	assert.Equal(t, 1, result.NodesWritten)
}

func TestRunToolsFallsBackToMemoryOnBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	client := unavailableClient{}

	tools := []Tool{
		fakeTool("ssis", model.NewNode("pipeline:a", model.KindPipeline, "a")),
	}

	activeClient, result, err := RunTools(ctx, client, "/some/root", nil, tools, nil)
	require.NoError(t, err)
	require.True(t, result.FellBackToMem)

	count, err := activeClient.GetNodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

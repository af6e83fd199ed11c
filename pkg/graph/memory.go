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
	"sync"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/model"
)

// MemoryClient is an in-memory directed multigraph: two maps guarded by one
// RWMutex, with no external dependency. It is the default backend for
// standalone runs and the fallback the orchestrator switches to when the
// remote backend is unavailable.
type MemoryClient struct {
	mu    sync.RWMutex
	nodes map[string]*model.Node
	edges map[[3]string]*model.Edge // (source, relation, target) -> edge, MERGE-keyed
}

// NewMemoryClient constructs an empty in-memory graph.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		nodes: make(map[string]*model.Node),
		edges: make(map[[3]string]*model.Edge),
	}
}

func (c *MemoryClient) WriteNode(_ context.Context, node *model.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.nodes[node.ID]; ok {
		existing.MergeProperties(node.Properties)
		if node.Context != nil {
			existing.Context = node.Context
		}
		return nil
	}
	c.nodes[node.ID] = node
	return nil
}

func (c *MemoryClient) WriteEdge(_ context.Context, edge *model.Edge) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.nodes[edge.SourceID]; !ok {
		return mzerrors.NewMissingEndpoint(edge.SourceID, edge.TargetID, string(edge.Relation), "source")
	}
	if _, ok := c.nodes[edge.TargetID]; !ok {
		return mzerrors.NewMissingEndpoint(edge.SourceID, edge.TargetID, string(edge.Relation), "target")
	}

	key := edge.Key()
	if existing, ok := c.edges[key]; ok {
		for k, v := range edge.Properties {
			existing.Properties[k] = v
		}
		return nil
	}
	c.edges[key] = edge
	return nil
}

func (c *MemoryClient) AddNodes(ctx context.Context, nodes []*model.Node) error {
	for _, n := range nodes {
		if err := c.WriteNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryClient) AddEdges(ctx context.Context, edges []*model.Edge) error {
	for _, e := range edges {
		if err := c.WriteEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryClient) GetNode(_ context.Context, id string) (*model.Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodes[id], nil
}

func (c *MemoryClient) GetAllNodes(_ context.Context) ([]*model.Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (c *MemoryClient) GetNodesByKind(_ context.Context, kind model.Kind) ([]*model.Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*model.Node
	for _, n := range c.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out, nil
}

func (c *MemoryClient) GetAllEdges(_ context.Context) ([]*model.Edge, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Edge, 0, len(c.edges))
	for _, e := range c.edges {
		out = append(out, e)
	}
	return out, nil
}

func (c *MemoryClient) GetNodeCount(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes), nil
}

func (c *MemoryClient) GetEdgeCount(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.edges), nil
}

func (c *MemoryClient) Close(_ context.Context) error { return nil }

var _ Client = (*MemoryClient)(nil)

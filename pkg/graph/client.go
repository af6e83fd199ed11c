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

// Package graph defines the knowledge-graph write/read contract every
// ingestion and analysis package targets, plus its two backends: an
// in-memory DAG for standalone/test use, and a remote property-graph store
// for shared deployments.
package graph

import (
	"context"

	"github.com/metazcode/mzc/pkg/model"
)

// Client is the interface every graph backend implements. Writes are
// MERGE/upsert: writing a node or edge that already exists by id (or by
// source/relation/target) merges properties rather than duplicating the
// entry. WriteEdge fails with *errors.MissingEndpoint if either endpoint has
// not been written yet.
type Client interface {
	WriteNode(ctx context.Context, node *model.Node) error
	WriteEdge(ctx context.Context, edge *model.Edge) error

	AddNodes(ctx context.Context, nodes []*model.Node) error
	AddEdges(ctx context.Context, edges []*model.Edge) error

	GetNode(ctx context.Context, id string) (*model.Node, error)
	GetAllNodes(ctx context.Context) ([]*model.Node, error)
	GetNodesByKind(ctx context.Context, kind model.Kind) ([]*model.Node, error)

	GetAllEdges(ctx context.Context) ([]*model.Edge, error)

	GetNodeCount(ctx context.Context) (int, error)
	GetEdgeCount(ctx context.Context) (int, error)

	Close(ctx context.Context) error
}

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
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/model"
)

// RemoteClient is a property-graph backend over neo4j-go-driver/v5. Every
// node is stored as a single :Node vertex keyed by its canonical id, with
// kind/name as first-class properties for indexing and the rest of the
// properties map JSON-serialized into properties_json (the driver's type
// system has no place for an arbitrary nested map[string]any). Every
// statement runs auto-commit through a fresh session; RemoteClient never
// holds a long-lived transaction and never retries a dropped connection —
// the caller is expected to construct a new RemoteClient and fall back to
// MemoryClient on BackendUnavailable, per the orchestrator's degrade policy.
type RemoteClient struct {
	driver neo4j.DriverWithContext
	dbName string
	target string
}

// NewRemoteClient dials uri, trying an unauthenticated connection first (for
// community deployments with auth disabled) and falling back to basic auth
// with the given credentials when that handshake fails. Connectivity is
// verified once at construction time; it returns *errors.BackendUnavailable
// if neither connects.
func NewRemoteClient(ctx context.Context, uri, username, password, dbName string) (*RemoteClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.NoAuth())
	if err == nil {
		if verr := driver.VerifyConnectivity(ctx); verr == nil {
			return &RemoteClient{driver: driver, dbName: dbName, target: uri}, nil
		}
		_ = driver.Close(ctx)
	}

	driver, err = neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, mzerrors.NewBackendUnavailable(uri, err)
	}
	if verr := driver.VerifyConnectivity(ctx); verr != nil {
		_ = driver.Close(ctx)
		return nil, mzerrors.NewBackendUnavailable(uri, verr)
	}

	return &RemoteClient{driver: driver, dbName: dbName, target: uri}, nil
}

func (c *RemoteClient) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName, AccessMode: mode})
}

func (c *RemoteClient) run(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, mzerrors.NewBackendUnavailable(c.target, err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, mzerrors.NewBackendUnavailable(c.target, err)
	}
	return records, nil
}

func (c *RemoteClient) WriteNode(ctx context.Context, node *model.Node) error {
	propsJSON, err := json.Marshal(node.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties for node %s: %w", node.ID, err)
	}
	var ctxJSON []byte
	if node.Context != nil {
		ctxJSON, _ = json.Marshal(node.Context)
	}
	_, err = c.run(ctx, `
		MERGE (n:Node {id: $id})
		SET n.kind = $kind, n.name = $name, n.properties_json = $props, n.context_json = $ctx
	`, map[string]any{
		"id": node.ID, "kind": string(node.Kind), "name": node.Name,
		"props": string(propsJSON), "ctx": string(ctxJSON),
	})
	return err
}

func (c *RemoteClient) WriteEdge(ctx context.Context, edge *model.Edge) error {
	propsJSON, err := json.Marshal(edge.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties for edge %s->%s: %w", edge.SourceID, edge.TargetID, err)
	}

	records, err := c.run(ctx, `
		MATCH (s:Node {id: $source}), (t:Node {id: $target})
		RETURN s.id, t.id
	`, map[string]any{"source": edge.SourceID, "target": edge.TargetID})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		sourceExists := false
		targetExists := false
		if n, gerr := c.GetNode(ctx, edge.SourceID); gerr == nil && n != nil {
			sourceExists = true
		}
		if n, gerr := c.GetNode(ctx, edge.TargetID); gerr == nil && n != nil {
			targetExists = true
		}
		missing := "source"
		if sourceExists && !targetExists {
			missing = "target"
		}
		return mzerrors.NewMissingEndpoint(edge.SourceID, edge.TargetID, string(edge.Relation), missing)
	}

	_, err = c.run(ctx, `
		MATCH (s:Node {id: $source}), (t:Node {id: $target})
		MERGE (s)-[r:`+cypherRelType(edge.Relation)+`]->(t)
		SET r.properties_json = $props
	`, map[string]any{"source": edge.SourceID, "target": edge.TargetID, "props": string(propsJSON)})
	return err
}

// cypherRelType upper-cases a relation into the REL_TYPE shape Cypher
// expects; GetAllEdges recovers the relation by lower-casing the stored
// type again (toSnakeRelation).
func cypherRelType(r model.Relation) string {
	out := make([]byte, 0, len(r))
	for _, ch := range string(r) {
		if ch >= 'a' && ch <= 'z' {
			ch -= 32
		}
		out = append(out, byte(ch))
	}
	return string(out)
}

func (c *RemoteClient) AddNodes(ctx context.Context, nodes []*model.Node) error {
	for _, n := range nodes {
		if err := c.WriteNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (c *RemoteClient) AddEdges(ctx context.Context, edges []*model.Edge) error {
	for _, e := range edges {
		if err := c.WriteEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func recordToNode(rec *neo4j.Record) (*model.Node, error) {
	idVal, _ := rec.Get("n.id")
	kindVal, _ := rec.Get("n.kind")
	nameVal, _ := rec.Get("n.name")
	propsVal, _ := rec.Get("n.properties_json")

	node := model.NewNode(asString(idVal), model.Kind(asString(kindVal)), asString(nameVal))
	if propsStr := asString(propsVal); propsStr != "" {
		_ = json.Unmarshal([]byte(propsStr), &node.Properties)
	}
	return node, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func (c *RemoteClient) GetNode(ctx context.Context, id string) (*model.Node, error) {
	session := c.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `MATCH (n:Node {id: $id}) RETURN n.id, n.kind, n.name, n.properties_json`, map[string]any{"id": id})
	if err != nil {
		return nil, mzerrors.NewBackendUnavailable(c.target, err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return nil, nil // not found, not an error
	}
	return recordToNode(record)
}

func (c *RemoteClient) GetAllNodes(ctx context.Context) ([]*model.Node, error) {
	records, err := c.run(ctx, `MATCH (n:Node) RETURN n.id, n.kind, n.name, n.properties_json`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Node, 0, len(records))
	for _, r := range records {
		n, _ := recordToNode(r)
		out = append(out, n)
	}
	return out, nil
}

func (c *RemoteClient) GetNodesByKind(ctx context.Context, kind model.Kind) ([]*model.Node, error) {
	records, err := c.run(ctx, `MATCH (n:Node {kind: $kind}) RETURN n.id, n.kind, n.name, n.properties_json`, map[string]any{"kind": string(kind)})
	if err != nil {
		return nil, err
	}
	out := make([]*model.Node, 0, len(records))
	for _, r := range records {
		n, _ := recordToNode(r)
		out = append(out, n)
	}
	return out, nil
}

func (c *RemoteClient) GetAllEdges(ctx context.Context) ([]*model.Edge, error) {
	records, err := c.run(ctx, `
		MATCH (s:Node)-[r]->(t:Node)
		RETURN s.id, t.id, type(r), r.properties_json
	`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Edge, 0, len(records))
	for _, rec := range records {
		sourceID, _ := rec.Get("s.id")
		targetID, _ := rec.Get("t.id")
		relType, _ := rec.Get("type(r)")
		propsVal, _ := rec.Get("r.properties_json")

		edge := model.NewEdge(asString(sourceID), asString(targetID), model.Relation(toSnakeRelation(asString(relType))))
		if propsStr := asString(propsVal); propsStr != "" {
			_ = json.Unmarshal([]byte(propsStr), &edge.Properties)
		}
		out = append(out, edge)
	}
	return out, nil
}

// toSnakeRelation reverses cypherRelType's upper-casing so GetAllEdges
// returns relations matching the closed Relation enum.
func toSnakeRelation(cypherType string) string {
	out := make([]byte, 0, len(cypherType))
	for _, ch := range cypherType {
		if ch >= 'A' && ch <= 'Z' {
			ch += 32
		}
		out = append(out, byte(ch))
	}
	return string(out)
}

func (c *RemoteClient) GetNodeCount(ctx context.Context) (int, error) {
	records, err := c.run(ctx, `MATCH (n:Node) RETURN count(n)`, nil)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	count, _ := records[0].Get("count(n)")
	return int(count.(int64)), nil
}

func (c *RemoteClient) GetEdgeCount(ctx context.Context) (int, error) {
	records, err := c.run(ctx, `MATCH ()-[r]->() RETURN count(r)`, nil)
	if err != nil || len(records) == 0 {
		return 0, err
	}
	count, _ := records[0].Get("count(r)")
	return int(count.(int64)), nil
}

func (c *RemoteClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

var _ Client = (*RemoteClient)(nil)

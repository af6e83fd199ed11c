// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package model

// Node is a single vertex in the canonical ETL knowledge graph. Properties
// carries kind-specific attributes (native type, SQL text, connection string
// components, ...); Context carries the traceability envelope back to the
// source artifact the node was derived from.
type Node struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
	Context    *SourceContext `json:"context,omitempty"`
}

// NewNode constructs a Node with an initialized, non-nil Properties map.
func NewNode(id string, kind Kind, name string) *Node {
	return &Node{
		ID:         id,
		Kind:       kind,
		Name:       name,
		Properties: make(map[string]any),
	}
}

// WithProperty sets a single property and returns the node for chaining.
func (n *Node) WithProperty(key string, value any) *Node {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	n.Properties[key] = value
	return n
}

// WithContext attaches a traceability envelope and returns the node for
// chaining.
func (n *Node) WithContext(ctx *SourceContext) *Node {
	n.Context = ctx
	return n
}

// MergeProperties implements the later-wins union merge used by
// pkg/graph.Client.WriteNode when a node with the same id already exists.
func (n *Node) MergeProperties(incoming map[string]any) {
	if n.Properties == nil {
		n.Properties = make(map[string]any)
	}
	for k, v := range incoming {
		n.Properties[k] = v
	}
}

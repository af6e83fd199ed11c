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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEdgeInitializesProperties(t *testing.T) {
	e := NewEdge("operation:DFT Load", "table:dbo.orders", RelationWritesTo)
	require.NotNil(t, e.Properties)
	assert.Equal(t, RelationWritesTo, e.Relation)
}

func TestEdgeWithPropertyChains(t *testing.T) {
	e := NewEdge("pipeline:A", "pipeline:B", RelationDependsOn).
		WithProperty("dependency_type", "data_flow").
		WithProperty("shared_resource", "table")

	assert.Equal(t, "data_flow", e.Properties["dependency_type"])
}

func TestEdgeKeyIdentity(t *testing.T) {
	e1 := NewEdge("a", "b", RelationContains)
	e2 := NewEdge("a", "b", RelationContains)
	e3 := NewEdge("a", "c", RelationContains)

	assert.Equal(t, e1.Key(), e2.Key())
	assert.NotEqual(t, e1.Key(), e3.Key())
}

func TestEdgeWithContext(t *testing.T) {
	ctx := NewEdgeTraceability("/tmp/pkg.dtsx", "SSIS", DerivationDataFlowAnalysis, "/Package/DFT", nil, ConfidenceHigh)
	e := NewEdge("operation:DFT", "table:dbo.orders", RelationWritesTo).WithContext(ctx)

	require.NotNil(t, e.Context)
	assert.Equal(t, DerivationDataFlowAnalysis, e.Context.DerivationMethod)
}

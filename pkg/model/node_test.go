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

func TestNewNodeInitializesProperties(t *testing.T) {
	n := NewNode("pipeline:Q1", KindPipeline, "Q1")
	require.NotNil(t, n.Properties)
	assert.Equal(t, "pipeline:Q1", n.ID)
	assert.Equal(t, KindPipeline, n.Kind)
	assert.Equal(t, "Q1", n.Name)
}

func TestNodeWithPropertyChains(t *testing.T) {
	n := NewNode("table:dbo.orders", KindTable, "orders").
		WithProperty("schema", "dbo").
		WithProperty("row_count_estimate", 1200)

	assert.Equal(t, "dbo", n.Properties["schema"])
	assert.Equal(t, 1200, n.Properties["row_count_estimate"])
}

func TestNodeMergePropertiesLaterWins(t *testing.T) {
	n := NewNode("table:dbo.orders", KindTable, "orders").
		WithProperty("row_count_estimate", 1200).
		WithProperty("stable_prop", "keep")

	n.MergeProperties(map[string]any{"row_count_estimate": 1500})

	assert.Equal(t, 1500, n.Properties["row_count_estimate"])
	assert.Equal(t, "keep", n.Properties["stable_prop"])
}

func TestNodeMergePropertiesOnNilMap(t *testing.T) {
	n := &Node{ID: "x", Kind: KindTable, Name: "x"}
	n.MergeProperties(map[string]any{"a": 1})
	assert.Equal(t, 1, n.Properties["a"])
}

func TestNodeWithContext(t *testing.T) {
	ctx := NewNodeTraceability("/tmp/pkg.dtsx", "dtsx", "SSIS", "/Package", 12, "")
	n := NewNode("pipeline:Q1", KindPipeline, "Q1").WithContext(ctx)

	require.NotNil(t, n.Context)
	assert.Equal(t, "dtsx", n.Context.SourceFileType)
}

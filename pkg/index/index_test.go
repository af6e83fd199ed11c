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

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metazcode/mzc/pkg/model"
)

func sampleNodes() []*model.Node {
	p := model.NewNode("pipeline:sales", model.KindPipeline, "SalesETL").
		WithProperty("technology", "SSIS")
	op := model.NewNode("op:load-customers", model.KindOperation, "LoadCustomers").
		WithProperty("native_type", "ExecuteSQLTask").
		WithProperty("sql_transformation", map[string]any{
			"sql_query":  "SELECT * FROM dbo.customers",
			"query_type": "SELECT",
		})
	table := model.NewNode("table:customers", model.KindTable, "customers").
		WithProperty("schema", "dbo")
	return []*model.Node{p, op, table}
}

func TestSearchByIDExactMatch(t *testing.T) {
	idx := BuildFromNodes(sampleNodes(), nil)
	n := idx.SearchByID("op:load-customers")
	require.NotNil(t, n)
	assert.Equal(t, "LoadCustomers", n.Name)

	assert.Nil(t, idx.SearchByID("nonexistent"))
}

func TestSearchByNameIsCaseInsensitiveAndTrimmed(t *testing.T) {
	idx := BuildFromNodes(sampleNodes(), nil)
	matches := idx.SearchByName("  salesetl  ")
	require.Len(t, matches, 1)
	assert.Equal(t, "pipeline:sales", matches[0].ID)
}

func TestSearchByMetadataFindsSQLOperation(t *testing.T) {
	idx := BuildFromNodes(sampleNodes(), nil)
	results := idx.SearchByMetadata("ExecuteSQLTask", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "op:load-customers", results[0].Node.ID)
}

func TestSearchByContentFindsSQLQueryText(t *testing.T) {
	idx := BuildFromNodes(sampleNodes(), nil)
	results := idx.SearchByContent("customers", 10)
	require.NotEmpty(t, results)
	var ids []string
	for _, r := range results {
		ids = append(ids, r.Node.ID)
	}
	assert.Contains(t, ids, "op:load-customers")
	assert.Contains(t, ids, "table:customers")
}

func TestSearchAllLayersExactIDAboveEverythingElse(t *testing.T) {
	idx := BuildFromNodes(sampleNodes(), nil)
	results := idx.Search("pipeline:sales", ModeAll, 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "pipeline:sales", results[0].Node.ID)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestSearchAllDeduplicatesByID(t *testing.T) {
	idx := BuildFromNodes(sampleNodes(), nil)
	results := idx.Search("customers", ModeAll, 10)
	seen := make(map[string]int)
	for _, r := range results {
		seen[r.Node.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %s appeared more than once", id)
	}
}

func TestTokenizeSplitsCamelCaseAndDropsShortTokens(t *testing.T) {
	tokens := Tokenize("dataFlowTask_v2.dtsx")
	assert.Contains(t, tokens, "data")
	assert.Contains(t, tokens, "flow")
	assert.Contains(t, tokens, "task")
	assert.Contains(t, tokens, "v2")
	assert.Contains(t, tokens, "dtsx")
	assert.NotContains(t, tokens, "a") // single-char tokens dropped
}

func TestEmptyQueryYieldsNoBM25Results(t *testing.T) {
	idx := BuildFromNodes(sampleNodes(), nil)
	assert.Empty(t, idx.SearchByMetadata("", 10))
	assert.Empty(t, idx.SearchByContent("   ", 10))
}

func TestBM25DoesNotDropDocumentsWhenAllScoresAreEqual(t *testing.T) {
	// Two documents with identical token sets produce identical, non-positive
	// BM25 scores in a tiny corpus; both must still surface with at least
	// the 0.001 floor score rather than being dropped by the threshold.
	nodes := []*model.Node{
		model.NewNode("a", model.KindPipeline, "A").WithProperty("technology", "SSIS"),
		model.NewNode("b", model.KindPipeline, "B").WithProperty("technology", "SSIS"),
	}
	idx := BuildFromNodes(nodes, nil)
	results := idx.SearchByMetadata("SSIS", 10)
	assert.NotEmpty(t, results)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.001)
	}
}

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

func etlSampleNodes() []*model.Node {
	pipelineA := model.NewNode("pipeline:load-sales", model.KindPipeline, "LoadSales").
		WithProperty("technology", "SSIS").
		WithProperty("execution_priority", 1).
		WithProperty("downstream_dependencies", []string{"pipeline:report-sales"})

	pipelineB := model.NewNode("pipeline:report-sales", model.KindPipeline, "ReportSales").
		WithProperty("technology", "SSIS").
		WithProperty("execution_priority", 2).
		WithProperty("upstream_dependencies", []string{"pipeline:load-sales"})

	opSQL := model.NewNode("op:insert-customers", model.KindOperation, "InsertCustomers").
		WithProperty("sql_transformation", map[string]any{
			"sql_query":  "INSERT INTO dbo.customers SELECT * FROM staging.customers",
			"query_type": "INSERT",
			"affected_tables": []map[string]any{
				{"schema": "dbo", "table": "customers", "full_name": "dbo.customers"},
			},
		})

	opDerived := model.NewNode("op:derive-fullname", model.KindOperation, "DeriveFullName").
		WithProperty("derived_column_expressions", map[string]any{
			"transformation_count": 1,
			"expressions": []map[string]any{
				{
					"column_name":         "FullName",
					"expression":          "[FirstName] + \" \" + [LastName]",
					"friendly_expression": "FirstName + LastName",
					"data_type":           "WSTR",
				},
			},
		})

	opSplit := model.NewNode("op:split-region", model.KindOperation, "SplitByRegion").
		WithProperty("conditional_split", []map[string]any{
			{"output_name": "West", "expression": "[Region] == \"West\"", "friendly_expression": "Region equals West"},
		})

	opLookup := model.NewNode("op:lookup-product", model.KindOperation, "LookupProduct").
		WithProperty("lookups", []any{
			map[string]any{
				"sql_command": "SELECT ProductID, ProductName FROM dbo.products",
				"join_conditions": []map[string]any{
					{"input_column": "ProductID", "reference_column": "ProductID"},
				},
				"output_columns": []map[string]any{
					{"output_column": "ProductName", "reference_column": "ProductName"},
				},
			},
		})

	opError := model.NewNode("op:load-orders", model.KindOperation, "LoadOrders").
		WithProperty("error_handling", map[string]any{
			"has_error_output": true,
			"error_outputs": []map[string]any{
				{"name": "OLE DB Destination Error Output"},
			},
			"input_error_configs": []map[string]any{
				{"error_row_disposition": "RD_RedirectRow"},
			},
		})

	connParam := model.NewNode("conn:sales-db", model.KindConnection, "SalesDB").
		WithProperty("connection_string", "Data Source=@[$Package::ServerName];Initial Catalog=Sales").
		WithProperty("is_parameterized", true).
		WithProperty("uses_parameters", []string{"ServerName"}).
		WithProperty("uses_variables", []string{})

	table := model.NewNode("table:customers", model.KindTable, "customers").
		WithProperty("shared_across_packages", true).
		WithProperty("integration_point", true)

	return []*model.Node{
		pipelineA, pipelineB, opSQL, opDerived, opSplit, opLookup, opError, connParam, table,
	}
}

func TestDomainKeyPropertiesExtendsBaseWhitelist(t *testing.T) {
	props := DomainKeyProperties(model.KindOperation)
	assert.Contains(t, props, "sql_transformation")
	assert.Contains(t, props, "lookups")
	assert.Contains(t, props, "conditional_split")

	base := defaultKeyProperties(model.KindOperation)
	assert.Subset(t, props, base)
}

func TestDomainIndexFindsSQLOperationByQueryType(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	results := idx.SearchByMetadata("INSERT", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "op:insert-customers", results[0].Node.ID)
}

func TestDomainIndexFindsDerivedColumnExpressionContent(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	results := idx.SearchByContent("FirstName LastName FullName", 10)
	var ids []string
	for _, r := range results {
		ids = append(ids, r.Node.ID)
	}
	assert.Contains(t, ids, "op:derive-fullname")
}

func TestDomainIndexFindsLookupBySQLCommand(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	results := idx.SearchByContent("ProductName products", 10)
	var ids []string
	for _, r := range results {
		ids = append(ids, r.Node.ID)
	}
	assert.Contains(t, ids, "op:lookup-product")
}

func TestDomainIndexFindsErrorDispositionToken(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	results := idx.SearchByMetadata("RedirectRow", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, "op:load-orders", results[0].Node.ID)
}

func TestDomainIndexFindsParameterizedConnection(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	conns := ParameterizedConnections(idx)
	require.Len(t, conns, 1)
	assert.Equal(t, "conn:sales-db", conns[0].ID)
}

func TestSharedTablesDiscoversIntegrationPoint(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	tables := SharedTables(idx)
	require.Len(t, tables, 1)
	assert.Equal(t, "table:customers", tables[0].ID)
}

func TestSQLOperationsDiscoversSQLTransformation(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	ops := SQLOperations(idx)
	var ids []string
	for _, o := range ops {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, "op:insert-customers")
}

func TestCrossPackagePipelinesDiscoversAnnotatedPipelines(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	pipelines := CrossPackagePipelines(idx)
	var ids []string
	for _, p := range pipelines {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, "pipeline:load-sales")
	assert.Contains(t, ids, "pipeline:report-sales")
}

func TestMigrationSearchSQLOperationsFocusExpandsQuery(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	results := MigrationSearch(idx, "customers", "sql_operations", 10)
	var ids []string
	for _, r := range results {
		ids = append(ids, r.Node.ID)
	}
	assert.Contains(t, ids, "op:insert-customers")
}

func TestMigrationSearchUnknownFocusFallsBackToUnifiedSearch(t *testing.T) {
	idx := BuildFromNodes(etlSampleNodes(), DomainConfig())
	results := MigrationSearch(idx, "pipeline:load-sales", "", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "pipeline:load-sales", results[0].Node.ID)
}

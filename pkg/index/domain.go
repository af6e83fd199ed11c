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
	"context"
	"fmt"
	"strings"

	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/model"
)

// etlKeyPropertyExtensions extends the base per-kind whitelist with the
// ETL-specific properties our SSIS/Informatica parsers actually populate:
// SQL transformation logic, derived-column expressions, error handling,
// cross-package dependency annotations (written by pkg/analysis), and
// connection expression analysis.
var etlKeyPropertyExtensions = map[model.Kind][]string{
	model.KindOperation: {
		"sql_transformation", "derived_column_expressions", "conditional_split",
		"lookups", "error_handling", "operation_subtype",
		"execution_context", "business_logic_category",
	},
	model.KindPipeline: {
		"execution_priority", "upstream_dependencies", "downstream_dependencies",
		"shared_tables_used", "shared_connections_used", "cross_package_analysis_complete",
		"business_domain", "migration_unit",
	},
	model.KindTable: {
		"shared_across_packages", "integration_point", "package_count", "contention_risk",
		"reader_operations", "writer_operations",
	},
	model.KindConnection: {
		"expression_analysis", "shared_across_packages", "concurrent_usage_risk",
		"parameterized_usage", "server", "database", "provider", "security",
	},
}

// DomainKeyProperties is the ETL-aware Config.KeyProperties: the base
// whitelist for kind, plus the ETL extensions above.
func DomainKeyProperties(kind model.Kind) []string {
	base := defaultKeyProperties(kind)
	extra, ok := etlKeyPropertyExtensions[kind]
	if !ok {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}

// DomainConfig returns the Config used by NewDomainIndex: the ETL key
// property whitelist plus the extra metadata/content token extractors
// below.
func DomainConfig() *Config {
	return &Config{
		KeyProperties:       DomainKeyProperties,
		ExtraMetadataTokens: domainMetadataTokens,
		ExtraContentTokens:  domainContentTokens,
	}
}

// NewDomainIndex builds an Index using DomainConfig, exercising every
// ETL-specific block this package supports.
func NewDomainIndex(ctx context.Context, client graph.Client) (*Index, error) {
	return Build(ctx, client, DomainConfig())
}

// domainMetadataTokens extracts a compact set of business-logic tokens for
// Level 3 indexing: SQL query type and affected-table names, error
// disposition, cross-package dependency/shared-table markers, and
// parameterized-connection flags.
func domainMetadataTokens(node *model.Node) []string {
	var tokens []string

	if sqlInfo, ok := node.Properties["sql_transformation"].(map[string]any); ok {
		if qt, ok := sqlInfo["query_type"].(string); ok {
			tokens = append(tokens, Tokenize(qt)...)
		}
		if tables, ok := sqlInfo["affected_tables"].([]map[string]any); ok {
			for _, t := range tables {
				tokens = append(tokens, Tokenize(asString(t["table"]))...)
				tokens = append(tokens, Tokenize(asString(t["schema"]))...)
			}
		}
	}

	if errConfig, ok := node.Properties["error_handling"].(map[string]any); ok {
		if outputs, ok := errConfig["error_outputs"].([]map[string]any); ok {
			for _, e := range outputs {
				tokens = append(tokens, Tokenize(asString(e["name"]))...)
			}
		}
		if inputConfigs, ok := errConfig["input_error_configs"].([]map[string]any); ok {
			for _, c := range inputConfigs {
				tokens = append(tokens, Tokenize(asString(c["error_row_disposition"]))...)
			}
		}
	}

	if deps, ok := node.Properties["upstream_dependencies"].([]string); ok {
		for _, dep := range deps {
			tokens = append(tokens, "depends_on_"+lastSegment(dep))
		}
	}
	if tables, ok := node.Properties["shared_tables_used"].([]string); ok {
		for _, t := range tables {
			tokens = append(tokens, "uses_table_"+lastSegment(t))
		}
	}

	if isParam, _ := node.Properties["is_parameterized"].(bool); isParam {
		tokens = append(tokens, "parameterized_connection")
		tokens = append(tokens, stringSliceTokens(node.Properties["uses_parameters"])...)
		tokens = append(tokens, stringSliceTokens(node.Properties["uses_variables"])...)
	}

	return tokens
}

// domainContentTokens extracts the full business-logic content for Level 4
// indexing: complete SQL text, derived-column and conditional-split
// expressions, lookup join/output columns, full dependency lists, and raw
// connection-string expression analysis.
func domainContentTokens(node *model.Node) []string {
	var tokens []string

	if sqlInfo, ok := node.Properties["sql_transformation"].(map[string]any); ok {
		tokens = append(tokens, Tokenize(asString(sqlInfo["sql_query"]))...)
		if params, ok := sqlInfo["parameters"].([]map[string]any); ok {
			for _, p := range params {
				tokens = append(tokens, Tokenize(asString(p["description"]))...)
			}
		}
		if tables, ok := sqlInfo["affected_tables"].([]map[string]any); ok {
			for _, t := range tables {
				tokens = append(tokens, Tokenize(asString(t["schema"]))...)
				tokens = append(tokens, Tokenize(asString(t["table"]))...)
				tokens = append(tokens, Tokenize(asString(t["full_name"]))...)
			}
		}
	}

	if derived, ok := node.Properties["derived_column_expressions"].(map[string]any); ok {
		if exprs, ok := derived["expressions"].([]map[string]any); ok {
			for _, e := range exprs {
				tokens = append(tokens, Tokenize(asString(e["expression"]))...)
				tokens = append(tokens, Tokenize(asString(e["friendly_expression"]))...)
				tokens = append(tokens, Tokenize(asString(e["column_name"]))...)
				tokens = append(tokens, Tokenize(asString(e["data_type"]))...)
			}
		}
	}

	if conditions, ok := node.Properties["conditional_split"].([]map[string]any); ok {
		for _, c := range conditions {
			tokens = append(tokens, Tokenize(asString(c["expression"]))...)
			tokens = append(tokens, Tokenize(asString(c["friendly_expression"]))...)
			tokens = append(tokens, Tokenize(asString(c["output_name"]))...)
		}
	}

	if lookups, ok := node.Properties["lookups"].([]any); ok {
		for _, raw := range lookups {
			lookup, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			tokens = append(tokens, Tokenize(asString(lookup["sql_command"]))...)
			if joins, ok := lookup["join_conditions"].([]map[string]any); ok {
				for _, j := range joins {
					tokens = append(tokens, Tokenize(asString(j["input_column"]))...)
					tokens = append(tokens, Tokenize(asString(j["reference_column"]))...)
				}
			}
			if outputs, ok := lookup["output_columns"].([]map[string]any); ok {
				for _, o := range outputs {
					tokens = append(tokens, Tokenize(asString(o["output_column"]))...)
					tokens = append(tokens, Tokenize(asString(o["reference_column"]))...)
				}
			}
		}
	}

	tokens = append(tokens, stringSliceTokens(node.Properties["upstream_dependencies"])...)
	tokens = append(tokens, stringSliceTokens(node.Properties["downstream_dependencies"])...)

	tokens = append(tokens, Tokenize(asString(node.Properties["connection_string"]))...)
	tokens = append(tokens, stringSliceTokens(node.Properties["uses_parameters"])...)
	tokens = append(tokens, stringSliceTokens(node.Properties["uses_variables"])...)

	return tokens
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func lastSegment(id string) string {
	parts := strings.Split(id, ":")
	return parts[len(parts)-1]
}

func stringSliceTokens(v any) []string {
	items, ok := v.([]string)
	if !ok {
		return nil
	}
	var tokens []string
	for _, item := range items {
		tokens = append(tokens, Tokenize(item)...)
	}
	return tokens
}

// MigrationSearch prepends focus-specific expansion terms to query before
// delegating to content search — e.g. focus "sql_operations" broadens the
// query with "sql_transformation query_type" so content matches favor
// SQL-bearing operations even when the raw query doesn't name those terms.
func MigrationSearch(idx *Index, query, focus string, topK int) []Result {
	var expanded string
	switch focus {
	case "sql_operations":
		expanded = fmt.Sprintf("%s sql_transformation query_type", query)
	case "cross_package_deps":
		expanded = fmt.Sprintf("%s depends_on upstream_dependencies downstream_dependencies", query)
	case "error_handling":
		expanded = fmt.Sprintf("%s error_handling error_disposition error_outputs", query)
	case "shared_resources":
		expanded = fmt.Sprintf("%s shared_tables shared_connections uses_table uses_connection", query)
	default:
		return idx.Search(query, ModeAll, topK)
	}
	return idx.SearchByContent(expanded, topK)
}

// SharedTables returns every table node whose content indicates it is used
// across packages (shared_across_packages / integration_point properties
// written by pkg/analysis's materialized views).
func SharedTables(idx *Index) []*model.Node {
	return discover(idx, "shared_across_packages integration_point", model.KindTable)
}

// SQLOperations returns every operation node carrying SQL transformation
// logic.
func SQLOperations(idx *Index) []*model.Node {
	return discover(idx, "sql_transformation query_type", model.KindOperation)
}

// ParameterizedConnections returns every connection node whose connection
// string references a parameter or variable.
func ParameterizedConnections(idx *Index) []*model.Node {
	return discover(idx, "parameterized_connection uses_parameters", model.KindConnection)
}

// CrossPackagePipelines returns every pipeline node annotated by the
// cross-package analyzer with upstream or downstream dependencies.
func CrossPackagePipelines(idx *Index) []*model.Node {
	return discover(idx, "upstream_dependencies downstream_dependencies", model.KindPipeline)
}

func discover(idx *Index, query string, kind model.Kind) []*model.Node {
	results := idx.SearchByContent(query, 100)
	var out []*model.Node
	for _, r := range results {
		if r.Node.Kind == kind {
			out = append(out, r.Node)
		}
	}
	return out
}

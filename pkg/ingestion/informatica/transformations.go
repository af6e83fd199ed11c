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

package informatica

import (
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/sqlsem"
)

// unconnectedLookupPattern matches an Informatica unconnected-lookup call
// embedded in an expression transform field, e.g. ":LKP.EMP_LOOKUP(...)".
var unconnectedLookupPattern = regexp.MustCompile(`:LKP\.(\w+)\(`)

// transformationKind maps a TRANSFORMATION definition's TYPE attribute value to the id-slug
// and internal dispatch key used for this transformation's operation node.
// Unrecognized types fall back to the generic "transformation" slug.
func transformationKind(transformationType string) string {
	switch transformationType {
	case "Source Qualifier":
		return "source_qualifier"
	case "Expression":
		return "expression"
	case "Filter":
		return "filter"
	case "Aggregator":
		return "aggregator"
	case "Sorter":
		return "sorter"
	case "Joiner":
		return "joiner"
	case "Lookup Procedure", "Lookup":
		return "lookup"
	case "Router":
		return "router"
	case "Union":
		return "union"
	case "Sequence Generator":
		return "sequence_generator"
	case "Update Strategy":
		return "update_strategy"
	case "Normalizer":
		return "normalizer"
	case "Rank":
		return "rank"
	default:
		return "transformation"
	}
}

// parseTransformationInstance builds the operation node for one mapping
// INSTANCE of TYPE="TRANSFORMATION", dispatching on its definition's TYPE to
// attach the fields the original per-type parsers pull out of each
// transformation's TABLEATTRIBUTE/TRANSFORMFIELD children.
func parseTransformationInstance(instance, def *xmlquery.Node, pID string, sessionConns map[string]string, edges *[]*model.Edge) *model.Node {
	instanceName := attr(instance, "NAME")
	transformationType := attr(def, "TYPE")
	kind := transformationKind(transformationType)

	id := operationID(pID, kind, instanceName)
	node := model.NewNode(id, model.KindOperation, instanceName).
		WithProperty("technology", "Informatica").
		WithProperty("pipeline_id", pID).
		WithProperty("operation_subtype", kind).
		WithProperty("transformation_type", transformationType).
		WithProperty("is_reusable", attr(def, "REUSABLE") == "YES")

	switch kind {
	case "source_qualifier":
		sqlOverride := tableAttribute(def, "Sql Query")
		node.WithProperty("sql_override", sqlOverride).
			WithProperty("user_defined_join", tableAttribute(def, "User Defined Join")).
			WithProperty("source_filter", tableAttribute(def, "Source Filter")).
			WithProperty("tracing_level", tableAttribute(def, "Tracing Level"))

		if sqlOverride != "" {
			node.WithProperty("sql_semantics", sqlsem.Parse(sqlOverride).ToMap())
		}

		if associatedSource := associatedSourceInstance(def); associatedSource != "" {
			*edges = append(*edges, model.NewEdge(id, sourceAssetID(associatedSource), model.RelationReadsFrom).
				WithProperty("relationship", "source_qualifier_reads_from_source"))
		}

	case "expression":
		node.WithProperty("expressions", expressionFields(def))

		lookups := unconnectedLookups(def)
		if len(lookups) > 0 {
			node.WithProperty("unconnected_lookups", lookups)
			for _, lookupName := range lookups {
				*edges = append(*edges, model.NewEdge(id, operationID(pID, "lookup", lookupName), model.RelationDependsOn).
					WithProperty("relationship", "unconnected_lookup_call").
					WithProperty("lookup_name", lookupName))
			}
		}

	case "filter":
		node.WithProperty("filter_condition", tableAttribute(def, "Filter Condition"))

	case "aggregator":
		node.WithProperty("group_by_ports", groupByPorts(def)).
			WithProperty("sorted_input", tableAttribute(def, "Sorted Input") == "YES")

	case "sorter":
		node.WithProperty("sort_keys", sortKeyPorts(def)).
			WithProperty("case_sensitive", tableAttribute(def, "Case Sensitive") == "YES").
			WithProperty("distinct", tableAttribute(def, "Distinct") == "YES")

	case "joiner":
		master, detail := joinerMasterDetail(def)
		node.WithProperty("join_condition", tableAttribute(def, "Join Condition")).
			WithProperty("join_type", tableAttribute(def, "Join Type")).
			WithProperty("master_ports", master).
			WithProperty("detail_ports", detail)

	case "lookup":
		connName := ""
		if sessionConns != nil {
			connName = sessionConns[instanceName]
		}
		node.WithProperty("lookup_sql_override", tableAttribute(def, "Lookup Sql Override")).
			WithProperty("lookup_table_name", tableAttribute(def, "Lookup table name")).
			WithProperty("lookup_condition", tableAttribute(def, "Lookup Condition")).
			WithProperty("lookup_policy_on_multiple_match", tableAttribute(def, "Lookup Policy on Multiple Match")).
			WithProperty("lookup_connection", connName)

	case "router":
		node.WithProperty("group_filter_conditions", routerGroups(def))

	case "union":
		node.WithProperty("input_groups", unionInputGroups(def))

	case "sequence_generator":
		node.WithProperty("start_value", tableAttribute(def, "Start Value")).
			WithProperty("increment_by", tableAttribute(def, "Increment By")).
			WithProperty("end_value", tableAttribute(def, "End Value")).
			WithProperty("cycle", tableAttribute(def, "Cycle") == "YES")

	case "update_strategy":
		node.WithProperty("update_strategy_expression", tableAttribute(def, "Update Strategy Expression"))

	case "normalizer":
		node.WithProperty("occurs", normalizerOccurs(def))

	case "rank":
		node.WithProperty("rank_port", rankPort(def)).
			WithProperty("top_bottom", tableAttribute(def, "Top/Bottom")).
			WithProperty("number_of_ranks", tableAttribute(def, "Number Of Ranks")).
			WithProperty("group_by_ports", groupByPorts(def))
	}

	return node
}

// associatedSourceInstance returns the text of a Source Qualifier
// definition's ASSOCIATED_SOURCE_INSTANCE child, identifying which SOURCE
// this qualifier reads from.
func associatedSourceInstance(def *xmlquery.Node) string {
	if n := xmlquery.FindOne(def, ".//ASSOCIATED_SOURCE_INSTANCE"); n != nil {
		return strings.TrimSpace(n.InnerText())
	}
	return ""
}

// unconnectedLookups scans every TRANSFORMFIELD expression on def for
// :LKP.NAME( calls, returning each distinct lookup name referenced.
func unconnectedLookups(def *xmlquery.Node) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range xmlquery.Find(def, "TRANSFORMFIELD") {
		expression := attr(f, "EXPRESSION")
		if expression == "" {
			continue
		}
		for _, m := range unconnectedLookupPattern.FindAllStringSubmatch(expression, -1) {
			name := m[1]
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func expressionFields(def *xmlquery.Node) []map[string]any {
	var out []map[string]any
	for _, f := range xmlquery.Find(def, "TRANSFORMFIELD") {
		if attr(f, "EXPRESSIONTYPE") == "" || attr(f, "EXPRESSION") == "" {
			continue
		}
		out = append(out, map[string]any{
			"field":      attr(f, "NAME"),
			"expression": attr(f, "EXPRESSION"),
			"type":       attr(f, "EXPRESSIONTYPE"),
		})
	}
	return out
}

func groupByPorts(def *xmlquery.Node) []string {
	var out []string
	for _, f := range xmlquery.Find(def, "TRANSFORMFIELD") {
		if attr(f, "PORTTYPE") != "" && strings.Contains(attr(f, "PORTTYPE"), "GROUP") {
			out = append(out, attr(f, "NAME"))
		}
	}
	return out
}

func sortKeyPorts(def *xmlquery.Node) []map[string]any {
	var out []map[string]any
	for i, f := range xmlquery.Find(def, "TRANSFORMFIELD") {
		if attr(f, "PORTTYPE") == "" || !strings.Contains(attr(f, "PORTTYPE"), "INPUT") {
			continue
		}
		out = append(out, map[string]any{
			"field": attr(f, "NAME"),
			"order": i,
		})
	}
	return out
}

// joinerMasterDetail splits a Joiner's ports by the master/detail role
// PowerCenter encodes in PORTTYPE. PORTTYPE is a combined value
// (e.g. "INPUT/MASTER", "INPUT/DETAIL"), so both checks must be substring
// matches rather than an equality check against "INPUT".
func joinerMasterDetail(def *xmlquery.Node) ([]string, []string) {
	var master, detail []string
	for _, f := range xmlquery.Find(def, "TRANSFORMFIELD") {
		portType := attr(f, "PORTTYPE")
		name := attr(f, "NAME")
		if strings.Contains(portType, "INPUT") && strings.Contains(portType, "MASTER") {
			master = append(master, name)
		} else if strings.Contains(portType, "INPUT") && strings.Contains(portType, "DETAIL") {
			detail = append(detail, name)
		}
	}
	return master, detail
}

func routerGroups(def *xmlquery.Node) []map[string]any {
	var out []map[string]any
	for _, ta := range xmlquery.Find(def, "TABLEATTRIBUTE") {
		name := attr(ta, "NAME")
		if strings.HasPrefix(name, "Group Filter Condition") {
			out = append(out, map[string]any{
				"group":     name,
				"condition": attr(ta, "VALUE"),
			})
		}
	}
	return out
}

func unionInputGroups(def *xmlquery.Node) []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, f := range xmlquery.Find(def, "TRANSFORMFIELD") {
		group := attr(f, "GROUP")
		if group == "" {
			continue
		}
		if _, ok := seen[group]; ok {
			continue
		}
		seen[group] = struct{}{}
		groups = append(groups, group)
	}
	return groups
}

func normalizerOccurs(def *xmlquery.Node) []map[string]any {
	var out []map[string]any
	for _, ta := range xmlquery.Find(def, "TABLEATTRIBUTE") {
		if strings.Contains(attr(ta, "NAME"), "Occurs") {
			out = append(out, map[string]any{
				"field": attr(ta, "NAME"),
				"value": attr(ta, "VALUE"),
			})
		}
	}
	return out
}

func rankPort(def *xmlquery.Node) string {
	for _, f := range xmlquery.Find(def, "TRANSFORMFIELD") {
		if strings.Contains(attr(f, "PORTTYPE"), "RANK") {
			return attr(f, "NAME")
		}
	}
	return ""
}

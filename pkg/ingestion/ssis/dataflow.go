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

package ssis

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/typemap"
)

// dataflowContext carries the shared mutable state threaded through every
// component parser for one data-flow task.
type dataflowContext struct {
	taskID        string
	operationNode *model.Node
	connectionIDs map[string]string // connection manager GUID -> connection node id
	paramVarIDs   map[string]string // parameter/variable GUID -> node id
	tableSeen     map[string]struct{}
	targetPlatforms []typemap.TargetPlatform
	nodes         *[]*model.Node
	edges         *[]*model.Edge
}

func enrichColumnType(ctx *dataflowContext, nativeType, length, precision, scale string) map[string]any {
	if nativeType == "" {
		return nil
	}
	e := typemap.Enrich(typemap.TechnologySSIS, nativeType, length, precision, scale, true, ctx.targetPlatforms)
	return map[string]any{
		"canonical_type":        string(e.CanonicalType),
		"target_types":          e.TargetTypes,
		"conversion_confidence": e.ConversionConfidence,
		"potential_issues":      e.PotentialIssues,
	}
}

// parseDataflowComponent dispatches one <component> by its componentClassID
// into the matching transformation-specific parser, falling back to a
// generic description for unrecognized types. Column lineage and error
// handling configuration are extracted for every component regardless of
// type.
func parseDataflowComponent(component *xmlquery.Node, ctx *dataflowContext) {
	classID := component.SelectAttr("componentClassID")
	name := component.SelectAttr("name")

	lineage := extractColumnLineage(component, name, ctx)
	if len(lineage["input_columns"].([]map[string]any)) > 0 || len(lineage["output_columns"].([]map[string]any)) > 0 {
		appendToList(ctx.operationNode, "column_lineage", lineage)
	}

	switch {
	case strings.Contains(classID, "Microsoft.DerivedColumn"):
		parseDerivedColumnComponent(component, ctx)
	case strings.Contains(classID, "Microsoft.ConditionalSplit"):
		parseConditionalSplitComponent(component, ctx)
	case strings.Contains(classID, "Microsoft.Lookup"):
		parseLookupComponent(component, ctx)
	case strings.Contains(classID, "Microsoft.OLEDBCommand"):
		parseOLEDBCommandComponent(component, ctx, name)
	case strings.Contains(classID, "OLEDBSource"), strings.Contains(classID, "OLEDBDestination"):
		parseOLEDBComponent(component, ctx, classID)
	default:
		parseGenericComponent(component, ctx, classID, name)
	}

	extractErrorHandlingConfig(component, ctx.operationNode)
}

func appendToList(n *model.Node, key string, value any) {
	existing, _ := n.Properties[key].([]any)
	n.Properties[key] = append(existing, value)
}

// extractColumnLineage walks a component's input/output column lists,
// recording lineage ids and building pass_through / derived_column mappings
// wherever an output column's OutputColumnLineageID resolves to an input.
func extractColumnLineage(component *xmlquery.Node, componentName string, ctx *dataflowContext) map[string]any {
	var inputColumns, outputColumns, mappings []map[string]any

	for _, input := range xmlquery.Find(component, "inputs/input") {
		inputName := input.SelectAttr("name")
		for _, col := range xmlquery.Find(input, "inputColumns/inputColumn") {
			colName := firstNonEmpty(col.SelectAttr("cachedName"), col.SelectAttr("name"))
			lineageID := col.SelectAttr("lineageId")
			dataType := col.SelectAttr("cachedDataType")
			length := col.SelectAttr("cachedLength")

			var outputLineageID string
			if prop := xmlquery.FindOne(col, "properties/property[@name='OutputColumnLineageID']"); prop != nil {
				outputLineageID = strings.TrimPrefix(strings.TrimSuffix(prop.InnerText(), "}"), "#{")
			}

			entry := map[string]any{
				"column_name":       colName,
				"input_name":        inputName,
				"lineage_id":        lineageID,
				"output_lineage_id": outputLineageID,
				"data_type":         dataType,
				"length":            length,
			}
			if enriched := enrichColumnType(ctx, dataType, length, "", ""); enriched != nil {
				entry["type_mapping"] = enriched
			}
			inputColumns = append(inputColumns, entry)

			if lineageID != "" && outputLineageID != "" {
				mappings = append(mappings, map[string]any{
					"source_column":       colName,
					"source_lineage_id":   lineageID,
					"target_lineage_id":   outputLineageID,
					"transformation_type": "pass_through",
				})
			}
		}
	}

	for _, output := range xmlquery.Find(component, "outputs/output") {
		outputName := output.SelectAttr("name")
		for _, col := range xmlquery.Find(output, "outputColumns/outputColumn") {
			colName := col.SelectAttr("name")
			lineageID := col.SelectAttr("lineageId")
			dataType := col.SelectAttr("dataType")
			length := col.SelectAttr("length")

			var expression string
			if prop := xmlquery.FindOne(col, "properties/property[@name='Expression']"); prop != nil {
				expression = prop.InnerText()
			}

			entry := map[string]any{
				"column_name": colName,
				"output_name": outputName,
				"lineage_id":  lineageID,
				"data_type":   dataType,
				"length":      length,
				"expression":  expression,
			}
			if enriched := enrichColumnType(ctx, dataType, length, "", ""); enriched != nil {
				entry["type_mapping"] = enriched
			}
			outputColumns = append(outputColumns, entry)

			if expression != "" {
				mappings = append(mappings, map[string]any{
					"target_column":       colName,
					"target_lineage_id":   lineageID,
					"expression":          expression,
					"transformation_type": "derived_column",
				})
			}
		}
	}

	return map[string]any{
		"component_name":  componentName,
		"input_columns":   inputColumns,
		"output_columns":  outputColumns,
		"column_mappings": mappings,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDerivedColumnComponent extracts per-output-column expressions,
// wiring variable/parameter dependency edges from each expression.
func parseDerivedColumnComponent(component *xmlquery.Node, ctx *dataflowContext) {
	var transformations []map[string]any

	for _, output := range xmlquery.Find(component, "outputs/output") {
		if output.SelectAttr("isErrorOut") == "true" {
			continue
		}
		for _, col := range xmlquery.Find(output, "outputColumns/outputColumn") {
			expr := propertyText(col, "Expression")
			if expr == "" {
				continue
			}
			friendly := propertyText(col, "FriendlyExpression")
			if friendly == "" {
				friendly = expr
			}

			entry := map[string]any{
				"column_name":         col.SelectAttr("name"),
				"expression":          expr,
				"friendly_expression": friendly,
				"data_type":           col.SelectAttr("dataType"),
				"length":              col.SelectAttr("length"),
			}
			if enriched := enrichColumnType(ctx, col.SelectAttr("dataType"), col.SelectAttr("length"), col.SelectAttr("precision"), col.SelectAttr("scale")); enriched != nil {
				entry["type_mapping"] = enriched
			}
			transformations = append(transformations, entry)

			parseExpressionDependencies(expr, ctx.taskID, ctx.paramVarIDs, ctx.edges)
		}
	}

	if len(transformations) > 0 {
		ctx.operationNode.WithProperty("derived_column_expressions", map[string]any{
			"transformation_count": len(transformations),
			"expressions":          transformations,
			"component_name":       component.SelectAttr("name"),
		})
	}
}

// parseConditionalSplitComponent extracts each branch's routing condition
// in evaluation order, with the default branch (if any) appended last.
func parseConditionalSplitComponent(component *xmlquery.Node, ctx *dataflowContext) {
	var conditions []map[string]any
	var defaultOutput map[string]any

	for _, output := range xmlquery.Find(component, "outputs/output") {
		if output.SelectAttr("isErrorOut") == "true" {
			continue
		}
		outputName := output.SelectAttr("name")

		if propertyText(output, "IsDefaultOut") == "true" {
			defaultOutput = map[string]any{
				"output_name": outputName,
				"is_default":  true,
				"description": output.SelectAttr("description"),
			}
			continue
		}

		expr := propertyText(output, "Expression")
		if expr == "" {
			continue
		}
		friendly := propertyText(output, "FriendlyExpression")
		if friendly == "" {
			friendly = expr
		}
		order := 0
		if raw := propertyText(output, "EvaluationOrder"); raw != "" {
			order, _ = strconv.Atoi(raw)
		}

		conditions = append(conditions, map[string]any{
			"output_name":         outputName,
			"expression":          expr,
			"friendly_expression": friendly,
			"evaluation_order":    order,
			"description":         output.SelectAttr("description"),
			"is_default":          false,
		})

		parseExpressionDependencies(expr, ctx.taskID, ctx.paramVarIDs, ctx.edges)
	}

	sort.Slice(conditions, func(i, j int) bool {
		return conditions[i]["evaluation_order"].(int) < conditions[j]["evaluation_order"].(int)
	})
	if defaultOutput != nil {
		conditions = append(conditions, defaultOutput)
	}

	if len(conditions) > 0 {
		ctx.operationNode.WithProperty("conditional_split", conditions)
	}
}

// parseLookupComponent extracts the reference-table SQL, join columns, and
// output-column copy mappings from a Microsoft.Lookup component.
func parseLookupComponent(component *xmlquery.Node, ctx *dataflowContext) {
	sqlCommand := propertyText(component, "SqlCommand")

	info := map[string]any{
		"lookup_name":       component.SelectAttr("name"),
		"sql_command":       sqlCommand,
		"parameter_map":     propertyText(component, "ParameterMap"),
		"no_match_behavior": propertyText(component, "NoMatchBehavior"),
	}

	var joinConditions []map[string]any
	for _, input := range xmlquery.Find(component, "inputs/input") {
		for _, col := range xmlquery.Find(input, "inputColumns/inputColumn") {
			joinTo := propertyText(col, "JoinToReferenceColumn")
			if joinTo == "" {
				continue
			}
			dataType := col.SelectAttr("cachedDataType")
			length := col.SelectAttr("cachedLength")
			entry := map[string]any{
				"input_column":     col.SelectAttr("cachedName"),
				"reference_column": joinTo,
				"data_type":        dataType,
				"length":           length,
			}
			if enriched := enrichColumnType(ctx, dataType, length, "", ""); enriched != nil {
				entry["type_mapping"] = enriched
			}
			joinConditions = append(joinConditions, entry)
		}
	}
	info["join_conditions"] = joinConditions

	var outputColumns []map[string]any
	for _, output := range xmlquery.Find(component, "outputs/output") {
		if output.SelectAttr("isErrorOut") == "true" || strings.Contains(output.SelectAttr("name"), "sans correspondance") {
			continue
		}
		for _, col := range xmlquery.Find(output, "outputColumns/outputColumn") {
			copyFrom := propertyText(col, "CopyFromReferenceColumn")
			if copyFrom == "" {
				continue
			}
			dataType := col.SelectAttr("dataType")
			entry := map[string]any{
				"output_column":    col.SelectAttr("name"),
				"reference_column": copyFrom,
				"data_type":        dataType,
			}
			if enriched := enrichColumnType(ctx, dataType, "", "", ""); enriched != nil {
				entry["type_mapping"] = enriched
			}
			outputColumns = append(outputColumns, entry)
		}
	}
	info["output_columns"] = outputColumns

	if sqlCommand != "" {
		if m := lookupFromSchemaTablePattern.FindStringSubmatch(sqlCommand); m != nil {
			info["reference_schema"] = m[1]
			info["reference_table"] = m[2]
		} else if m := lookupFromTablePattern.FindStringSubmatch(sqlCommand); m != nil {
			info["reference_table"] = m[1]
		}
	}

	if len(joinConditions) > 0 || len(outputColumns) > 0 {
		appendToList(ctx.operationNode, "lookups", info)
	}
}

var (
	lookupFromSchemaTablePattern = regexp.MustCompile(`(?i)from\s+\[?([^\[\]\s]+)\]?\.\[?([^\[\]\s]+)\]?`)
	lookupFromTablePattern       = regexp.MustCompile(`(?i)from\s+\[?([^\[\]\s]+)\]?`)
)

// parseOLEDBCommandComponent extracts the embedded SQL command from a
// Microsoft.OLEDBCommand transformation (used for row-by-row INSERT/UPDATE
// inside a data flow, as opposed to a standalone Execute SQL task).
func parseOLEDBCommandComponent(component *xmlquery.Node, ctx *dataflowContext, name string) {
	sqlCommand := strings.TrimSpace(propertyText(component, "SqlCommand"))
	if sqlCommand == "" {
		return
	}

	var connRef string
	if connTag := xmlquery.FindOne(component, "connections/connection"); connTag != nil {
		if guid := firstGUIDSegment(connTag.SelectAttr("connectionManagerID")); guid != "" {
			connRef = ctx.connectionIDs[guid]
		}
	}

	refs := extractTableReferences(sqlCommand)
	affectedTables := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		affectedTables = append(affectedTables, map[string]any{
			"schema": ref.Schema, "table": ref.Table, "full_name": ref.FullName(),
		})
	}

	ctx.operationNode.WithProperty("sql_transformation", map[string]any{
		"sql_query":        sqlCommand,
		"connection_ref":   connRef,
		"query_type":       determineSQLType(sqlCommand),
		"parameters":       extractSQLParameters(sqlCommand),
		"affected_tables":  affectedTables,
		"has_placeholders": strings.Contains(sqlCommand, "?"),
		"component_type":   "OLE DB Command",
		"component_name":   name,
	})

	parseExpressionDependencies(sqlCommand, ctx.taskID, ctx.paramVarIDs, ctx.edges)
}

func firstGUIDSegment(connectionManagerID string) string {
	if connectionManagerID == "" {
		return ""
	}
	return strings.Trim(strings.SplitN(connectionManagerID, ":", 2)[0], "{}")
}

// parseOLEDBComponent handles OLE DB Source/Destination components: it
// resolves the component's connection, any ParameterMapping, and the target
// table (from OpenRowset/SqlCommand/TableName), emitting reads_from or
// writes_to accordingly.
func parseOLEDBComponent(component *xmlquery.Node, ctx *dataflowContext, classID string) {
	isSource := strings.Contains(classID, "OLEDBSource")

	var connGUID string
	if connTag := xmlquery.FindOne(component, "connections/connection"); connTag != nil {
		connGUID = firstGUIDSegment(connTag.SelectAttr("connectionManagerID"))
	}
	if connID, ok := ctx.connectionIDs[connGUID]; ok && connGUID != "" {
		*ctx.edges = append(*ctx.edges, model.NewEdge(ctx.taskID, connID, model.RelationUsesConnection))
	}

	if mapping := propertyText(component, "ParameterMapping"); mapping != "" {
		parseParameterMapping(mapping, ctx.taskID, ctx.paramVarIDs, ctx.edges)
	}

	var tableName string
	for _, propName := range []string{"OpenRowset", "SqlCommand", "TableName"} {
		text := propertyText(component, propName)
		if text == "" {
			continue
		}
		if strings.Contains(strings.ToUpper(text), "SELECT") {
			if refs := extractTableReferences(text); len(refs) > 0 {
				tableName = refs[0].FullName()
				break
			}
			continue
		}
		tableName = text
		break
	}

	if tableName == "" {
		return
	}
	tableName = strings.Trim(tableName, "[]")

	tid := ensureTableNode(ctx.nodes, ctx.tableSeen, tableName)
	if tableNode := findNode(*ctx.nodes, tid); tableNode != nil {
		if len(ctx.targetPlatforms) > 0 {
			platforms := make([]string, 0, len(ctx.targetPlatforms))
			for _, p := range ctx.targetPlatforms {
				platforms = append(platforms, string(p))
			}
			tableNode.WithProperty("supported_platforms", platforms).WithProperty("type_mapping_enabled", true)
		}
		if connGUID != "" {
			tableNode.WithProperty("connection_id", connGUID)
		}
	}

	relation := model.RelationReadsFrom
	if !isSource {
		relation = model.RelationWritesTo
	}
	*ctx.edges = append(*ctx.edges, model.NewEdge(ctx.taskID, tid, relation))
}

func findNode(nodes []*model.Node, id string) *model.Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// parseGenericComponent records an unrecognized component's class and name
// without structured lineage beyond what extractColumnLineage captured.
func parseGenericComponent(component *xmlquery.Node, ctx *dataflowContext, classID, name string) {
	appendToList(ctx.operationNode, "generic_components", map[string]any{
		"component_class_id": classID,
		"component_name":     name,
	})
}

// extractErrorHandlingConfig records error-output redirection and row
// disposition settings for any component that declares them.
func extractErrorHandlingConfig(component *xmlquery.Node, operationNode *model.Node) {
	var errorOutputs []map[string]any
	for _, output := range xmlquery.Find(component, "outputs/output") {
		if output.SelectAttr("isErrorOut") != "true" {
			continue
		}
		errorOutputs = append(errorOutputs, map[string]any{
			"name":        output.SelectAttr("name"),
			"description": output.SelectAttr("description"),
			"ref_id":      output.SelectAttr("refId"),
		})
	}

	var inputConfigs []map[string]any
	for _, input := range xmlquery.Find(component, "inputs/input") {
		errorDisposition := input.SelectAttr("errorRowDisposition")
		truncationDisposition := input.SelectAttr("truncationRowDisposition")
		if errorDisposition == "" && truncationDisposition == "" {
			continue
		}
		inputConfigs = append(inputConfigs, map[string]any{
			"input_name":                 input.SelectAttr("name"),
			"error_row_disposition":      errorDisposition,
			"truncation_row_disposition": truncationDisposition,
			"error_operation":            input.SelectAttr("errorOrTruncationOperation"),
		})
	}

	if len(errorOutputs) == 0 && len(inputConfigs) == 0 {
		return
	}
	operationNode.WithProperty("error_handling", map[string]any{
		"has_error_output":   len(errorOutputs) > 0,
		"error_outputs":      errorOutputs,
		"input_error_configs": inputConfigs,
	})
}

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
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/sqlsem"
)

// determineSQLType classifies a SQL statement's leading keyword.
func determineSQLType(sql string) string {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE", "DROP"} {
		if strings.HasPrefix(upper, kw) {
			return kw
		}
	}
	if strings.HasPrefix(upper, "EXEC") {
		return "EXECUTE"
	}
	return "UNKNOWN"
}

func extractSQLParameters(sql string) []map[string]any {
	var params []map[string]any
	for i := 0; i < strings.Count(sql, "?"); i++ {
		params = append(params, map[string]any{
			"position":    i,
			"placeholder": "?",
			"description": fmt.Sprintf("Parameter %d", i+1),
		})
	}
	return params
}

var tableRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)FROM\s+\[?([\w\d_]+)\]?\.\[?([\w\d_]+)\]?`),
	regexp.MustCompile(`(?i)JOIN\s+\[?([\w\d_]+)\]?\.\[?([\w\d_]+)\]?`),
	regexp.MustCompile(`(?i)UPDATE\s+\[?([\w\d_]+)\]?\.\[?([\w\d_]+)\]?`),
	regexp.MustCompile(`(?i)INSERT\s+INTO\s+\[?([\w\d_]+)\]?\.\[?([\w\d_]+)\]?`),
	regexp.MustCompile(`(?i)DELETE\s+FROM\s+\[?([\w\d_]+)\]?\.\[?([\w\d_]+)\]?`),
}

type sqlTableRef struct {
	Schema string
	Table  string
}

func (r sqlTableRef) FullName() string { return r.Schema + "." + r.Table }

func extractTableReferences(sql string) []sqlTableRef {
	var refs []sqlTableRef
	for _, re := range tableRefPatterns {
		for _, m := range re.FindAllStringSubmatch(sql, -1) {
			refs = append(refs, sqlTableRef{Schema: m[1], Table: m[2]})
		}
	}
	return refs
}

// ensureTableNode appends a table node to nodes if one with this id does not
// already exist, returning its id.
func ensureTableNode(nodes *[]*model.Node, seen map[string]struct{}, fullName string) string {
	id := tableID(fullName)
	if _, ok := seen[id]; ok {
		return id
	}
	seen[id] = struct{}{}
	*nodes = append(*nodes, model.NewNode(id, model.KindTable, fullName).
		WithProperty("technology", "SSIS").
		WithProperty("table_name", fullName))
	return id
}

// parseExecuteSQLTask extracts the embedded SQL statement, classifies it,
// resolves its connection and table lineage, and wires parameter-mapping
// dependencies when the statement is parameterized.
func parseExecuteSQLTask(
	objectData *xmlquery.Node,
	taskID string,
	operationNode *model.Node,
	connectionIDs map[string]string,
	paramVarIDs map[string]string,
	tableSeen map[string]struct{},
	nodes *[]*model.Node,
	edges *[]*model.Edge,
) {
	sqlTaskData := xmlquery.FindOne(objectData, "SQLTask:SqlTaskData")
	if sqlTaskData == nil {
		return
	}

	connRef := attr(sqlTaskData, "SQLTask:Connection")
	if connID, ok := connectionIDs[connRef]; ok {
		*edges = append(*edges, model.NewEdge(taskID, connID, model.RelationUsesConnection))
	}

	sqlStatement := attr(sqlTaskData, "SQLTask:SqlStatementSource")
	if sqlStatement == "" {
		return
	}

	refs := extractTableReferences(sqlStatement)
	affectedTables := make([]map[string]any, 0, len(refs))
	for _, ref := range refs {
		affectedTables = append(affectedTables, map[string]any{
			"schema": ref.Schema, "table": ref.Table, "full_name": ref.FullName(),
		})
	}

	operationNode.WithProperty("sql_transformation", map[string]any{
		"sql_query":        sqlStatement,
		"connection_ref":   connRef,
		"query_type":       determineSQLType(sqlStatement),
		"parameters":       extractSQLParameters(sqlStatement),
		"affected_tables":  affectedTables,
		"has_placeholders": strings.Contains(sqlStatement, "?"),
	})

	if strings.Contains(sqlStatement, "?") {
		if paramMapping := dtsProperty(sqlTaskData, "ParameterMapping"); paramMapping != "" {
			parseParameterMapping(paramMapping, taskID, paramVarIDs, edges)
		}
	}

	writeVerbs := strings.Contains(strings.ToUpper(sqlStatement), "UPDATE") || strings.Contains(strings.ToUpper(sqlStatement), "INSERT")
	relation := model.RelationReadsFrom
	if writeVerbs {
		relation = model.RelationWritesTo
	}
	for _, ref := range refs {
		tid := ensureTableNode(nodes, tableSeen, ref.FullName())
		*edges = append(*edges, model.NewEdge(taskID, tid, relation))
	}

	appendJoinEdges(sqlStatement, tableSeen, nodes, edges)

	parseExpressionDependencies(sqlStatement, taskID, paramVarIDs, edges)
}

// appendJoinEdges runs sqlStatement through sqlsem.Parse and turns every
// JOIN it finds into a "references" edge between the two joined tables,
// porting the original parser's create_join_edges_from_semantics pass.
func appendJoinEdges(sqlStatement string, tableSeen map[string]struct{}, nodes *[]*model.Node, edges *[]*model.Edge) {
	semantics := sqlsem.Parse(sqlStatement)
	joinEdges := sqlsem.JoinEdges(semantics)

	for i, join := range semantics.Joins {
		leftID := ensureTableNode(nodes, tableSeen, join.LeftTable.FullName())
		rightID := ensureTableNode(nodes, tableSeen, join.RightTable.FullName())

		descriptor := joinEdges[i]
		edge := model.NewEdge(leftID, rightID, model.RelationReferences)
		for key, value := range descriptor.Properties {
			edge.WithProperty(key, value)
		}
		*edges = append(*edges, edge)
	}
}

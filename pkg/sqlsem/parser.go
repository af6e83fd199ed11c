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

// Package sqlsem extracts table references, JOIN relationships, and column
// expressions from a raw SQL string using ordered regex sweeps rather than a
// full grammar. The FROM table is always treated as the left anchor of
// every JOIN, which flattens multi-way joins into a star rather than a
// tree — an intentional simplification, not an oversight: see Parse's doc
// comment.
package sqlsem

import (
	"regexp"
	"strings"
)

// JoinType is the closed set of JOIN kinds this parser recognizes.
type JoinType string

const (
	JoinInner JoinType = "INNER JOIN"
	JoinLeft  JoinType = "LEFT JOIN"
	JoinRight JoinType = "RIGHT JOIN"
	JoinFull  JoinType = "FULL OUTER JOIN"
	JoinCross JoinType = "CROSS JOIN"
)

// TableReference is a table named in a FROM or JOIN clause, with its
// optional alias and schema.
type TableReference struct {
	Name   string
	Alias  string
	Schema string
}

// FullName returns the schema-qualified table name, or just the name when
// there is no schema.
func (t TableReference) FullName() string {
	if t.Schema != "" {
		return t.Schema + "." + t.Name
	}
	return t.Name
}

// DisplayName returns the alias if present, otherwise the table name.
func (t TableReference) DisplayName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// JoinRelationship is a JOIN clause's type, its two tables, and its ON
// condition text.
type JoinRelationship struct {
	JoinType     JoinType
	LeftTable    TableReference
	RightTable   TableReference
	Condition    string
	RawCondition string
}

// ColumnExpression is one comma-separated item from a SELECT list.
type ColumnExpression struct {
	Expression   string
	Alias        string
	SourceTable  string
	SourceAlias  string
	ColumnName   string
}

// EffectiveName returns the alias if present, else the column name, else
// the raw expression.
func (c ColumnExpression) EffectiveName() string {
	if c.Alias != "" {
		return c.Alias
	}
	if c.ColumnName != "" {
		return c.ColumnName
	}
	return c.Expression
}

// SqlSemantics is the complete parse result for one SQL statement.
type SqlSemantics struct {
	OriginalQuery string
	Tables        []TableReference
	Joins         []JoinRelationship
	Columns       []ColumnExpression
	WhereClause   string
}

var (
	keywordSpacing = regexp.MustCompile(`(?i)\s+(FROM|JOIN|WHERE|ON|AS)\s+`)
	commaSpacing   = regexp.MustCompile(`\s*,\s*`)

	fromPattern = regexp.MustCompile(`(?i)FROM\s+(?:\[?([^\s\[\]\.]+)\]?\.)?(?:\[?([^\s\[\]\.]+)\]?)(?:\s+(?:AS\s+)?([^\s]+))?`)
	joinPattern = regexp.MustCompile(`(?i)(?:INNER\s+|LEFT\s+|RIGHT\s+|FULL\s+OUTER\s+|CROSS\s+)?JOIN\s+(?:\[?([^\s\[\]\.]+)\]?\.)?(?:\[?([^\s\[\]\.]+)\]?)(?:\s+(?:AS\s+)?([^\s]+))?`)

	joinConditionPattern = regexp.MustCompile(`(?is)((?:INNER\s+|LEFT\s+|RIGHT\s+|FULL\s+OUTER\s+|CROSS\s+)?JOIN)\s+(?:\[?([^\s\[\]\.]+)\]?\.)?(?:\[?([^\s\[\]\.]+)\]?)(?:\s+(?:AS\s+)?([^\s]+))?\s+ON\s+(.+?)(?:\s*(?:INNER|LEFT|RIGHT|FULL|CROSS|WHERE|ORDER|GROUP|HAVING|$))`)

	selectPattern = regexp.MustCompile(`(?is)SELECT\s+(.*?)\s+FROM`)
	asAliasPattern = regexp.MustCompile(`(?i)^(.+?)\s+AS\s+(\w+)$`)
	tableColPattern = regexp.MustCompile(`^(\w+)\.(\w+)$`)

	wherePattern = regexp.MustCompile(`(?is)WHERE\s+(.+?)(?:\s+(?:ORDER|GROUP|HAVING)|$)`)
)

// Parse extracts SqlSemantics from a raw SQL string. It never panics or
// returns an error: malformed or unrecognized SQL yields a SqlSemantics
// with empty slices, matching the original parser's fail-open behavior —
// callers treat a parse failure as "no semantics extracted", not a hard
// error.
//
// Every JOIN is anchored to the statement's single FROM table rather than
// to whichever table precedes it; a three-way join (A JOIN B JOIN C) is
// reported as two edges both rooted at A, not a chain A-B-C. This matches
// the simplified join-edge model create_join_edges_from_semantics builds
// on, at the cost of losing the true join tree for deeply nested queries.
func Parse(sql string) SqlSemantics {
	if strings.TrimSpace(sql) == "" {
		return SqlSemantics{}
	}

	normalized := normalize(sql)

	tables := extractTables(normalized)
	joins := extractJoins(normalized, tables)
	columns := extractColumns(normalized, tables)
	where := extractWhere(normalized)

	return SqlSemantics{
		OriginalQuery: normalized,
		Tables:        tables,
		Joins:         joins,
		Columns:       columns,
		WhereClause:   where,
	}
}

func normalize(sql string) string {
	fields := strings.Fields(sql)
	joined := strings.Join(fields, " ")
	joined = commaSpacing.ReplaceAllString(joined, ", ")
	joined = keywordSpacing.ReplaceAllString(joined, " $1 ")
	return strings.TrimSpace(joined)
}

func extractTables(sql string) []TableReference {
	var tables []TableReference

	if m := fromPattern.FindStringSubmatch(sql); m != nil {
		schema, name, alias := m[1], m[2], m[3]
		if name == "" {
			name = schema
			schema = ""
		}
		tables = append(tables, TableReference{Name: name, Alias: alias, Schema: schema})
	}

	for _, m := range joinPattern.FindAllStringSubmatch(sql, -1) {
		schema, name, alias := m[1], m[2], m[3]
		if name == "" && schema != "" {
			name = schema
			schema = ""
		}
		if name == "" {
			continue
		}
		tables = append(tables, TableReference{Name: name, Alias: alias, Schema: schema})
	}

	return tables
}

func extractJoins(sql string, tables []TableReference) []JoinRelationship {
	var joins []JoinRelationship

	leftTable := TableReference{Name: "Unknown"}
	if len(tables) > 0 {
		leftTable = tables[0]
	}

	for offset := 0; offset < len(sql); {
		loc := joinConditionPattern.FindStringSubmatchIndex(sql[offset:])
		if loc == nil {
			break
		}
		group := func(i int) string {
			if loc[2*i] < 0 {
				return ""
			}
			return sql[offset+loc[2*i] : offset+loc[2*i+1]]
		}
		joinTypeRaw, schema, name, alias, condition := group(1), group(2), group(3), group(4), group(5)
		// Resume right after the condition rather than after the keyword that
		// ended it, so a following "LEFT JOIN" keeps its join type.
		offset += loc[11]

		joinType := normalizeJoinType(joinTypeRaw)

		if name == "" && schema != "" {
			name = schema
			schema = ""
		}

		var rightTable TableReference
		found := false
		for _, t := range tables {
			if t.Name == name {
				rightTable = t
				found = true
				break
			}
		}
		if !found {
			rightTable = TableReference{Name: name, Alias: alias, Schema: schema}
		}

		joins = append(joins, JoinRelationship{
			JoinType:     joinType,
			LeftTable:    leftTable,
			RightTable:   rightTable,
			Condition:    strings.TrimSpace(condition),
			RawCondition: strings.TrimSpace(condition),
		})
	}

	return joins
}

func normalizeJoinType(raw string) JoinType {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	clean = strings.Join(strings.Fields(clean), " ")
	switch clean {
	case "JOIN":
		return JoinInner
	case "INNER JOIN":
		return JoinInner
	case "LEFT JOIN":
		return JoinLeft
	case "RIGHT JOIN":
		return JoinRight
	case "FULL OUTER JOIN":
		return JoinFull
	case "CROSS JOIN":
		return JoinCross
	default:
		return JoinInner
	}
}

func extractColumns(sql string, tables []TableReference) []ColumnExpression {
	selectMatch := selectPattern.FindStringSubmatch(sql)
	if selectMatch == nil {
		return nil
	}

	aliasToTable := make(map[string]string)
	for _, t := range tables {
		if t.Alias != "" {
			aliasToTable[t.Alias] = t.Name
		}
	}

	var columns []ColumnExpression
	for _, expr := range splitSelectColumns(selectMatch[1]) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}

		sourceExpr := expr
		var alias string
		if m := asAliasPattern.FindStringSubmatch(expr); m != nil {
			sourceExpr = strings.TrimSpace(m[1])
			alias = m[2]
		}

		var sourceTable, sourceAlias, columnName string
		if m := tableColPattern.FindStringSubmatch(sourceExpr); m != nil {
			sourceAlias = m[1]
			columnName = m[2]
			sourceTable = aliasToTable[sourceAlias]
		} else {
			columnName = sourceExpr
		}

		columns = append(columns, ColumnExpression{
			Expression:  expr,
			Alias:       alias,
			SourceTable: sourceTable,
			SourceAlias: sourceAlias,
			ColumnName:  columnName,
		})
	}

	return columns
}

// splitSelectColumns splits a SELECT list on top-level commas, ignoring
// commas nested inside parentheses (function calls, CASE expressions).
func splitSelectColumns(selectClause string) []string {
	var columns []string
	var current strings.Builder
	depth := 0

	for _, ch := range selectClause {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				columns = append(columns, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}

	if strings.TrimSpace(current.String()) != "" {
		columns = append(columns, strings.TrimSpace(current.String()))
	}

	return columns
}

func extractWhere(sql string) string {
	if m := wherePattern.FindStringSubmatch(sql); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ToMap converts semantics into the map[string]any shape used for node
// properties elsewhere in the ingestion packages (see sql_transformation in
// pkg/ingestion/ssis/executesql.go), so it tokenizes the same way every
// other structured property does rather than carrying a raw Go struct.
func (s SqlSemantics) ToMap() map[string]any {
	tables := make([]map[string]any, 0, len(s.Tables))
	for _, t := range s.Tables {
		tables = append(tables, map[string]any{
			"name": t.Name, "alias": t.Alias, "schema": t.Schema, "full_name": t.FullName(),
		})
	}

	joins := make([]map[string]any, 0, len(s.Joins))
	for _, j := range s.Joins {
		joins = append(joins, map[string]any{
			"join_type":   string(j.JoinType),
			"left_table":  j.LeftTable.FullName(),
			"right_table": j.RightTable.FullName(),
			"condition":   j.Condition,
		})
	}

	columns := make([]map[string]any, 0, len(s.Columns))
	for _, c := range s.Columns {
		columns = append(columns, map[string]any{
			"expression":   c.Expression,
			"alias":        c.Alias,
			"source_table": c.SourceTable,
			"source_alias": c.SourceAlias,
			"column_name":  c.ColumnName,
		})
	}

	return map[string]any{
		"original_query": s.OriginalQuery,
		"tables":         tables,
		"joins":          joins,
		"columns":        columns,
		"where_clause":   s.WhereClause,
	}
}

// EdgeDescriptor is a side-effect-free description of a graph edge this
// package's caller should create, avoiding a direct dependency from
// pkg/sqlsem onto pkg/model.
type EdgeDescriptor struct {
	SourceID   string
	TargetID   string
	Relation   string
	Properties map[string]any
}

// JoinEdges builds one EdgeDescriptor per JOIN in semantics, connecting the
// two tables involved with relation "references" and a
// relationship_type=join_relationship marker property. Column-level alias
// edges are intentionally not emitted: columns may not exist as individual
// graph nodes, and the alias information is already preserved on
// SqlSemantics itself.
func JoinEdges(semantics SqlSemantics) []EdgeDescriptor {
	edges := make([]EdgeDescriptor, 0, len(semantics.Joins))

	for _, join := range semantics.Joins {
		edges = append(edges, EdgeDescriptor{
			SourceID: "table:" + join.LeftTable.Name,
			TargetID: "table:" + join.RightTable.Name,
			Relation: "references",
			Properties: map[string]any{
				"join_type":         string(join.JoinType),
				"condition":         join.Condition,
				"left_alias":        join.LeftTable.Alias,
				"right_alias":       join.RightTable.Alias,
				"raw_condition":     join.RawCondition,
				"relationship_type": "join_relationship",
			},
		})
	}

	return edges
}

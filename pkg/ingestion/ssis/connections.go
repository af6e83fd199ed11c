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
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/metazcode/mzc/pkg/model"
)

// connectionContext is the enriched view of a .conmgr file's contents,
// keyed by both logical connection name and GUID so package-level
// ConnectionManager references can be resolved either way.
type connectionContext struct {
	Name             string
	GUID             string
	CreationName     string
	ConnectionString string
	FilePath         string
	Components       map[string]string // server, database, provider, security, application
}

var connStringPatterns = map[string]*regexp.Regexp{
	"server":      regexp.MustCompile(`(?i)Data Source=([^;]+)`),
	"database":    regexp.MustCompile(`(?i)Initial Catalog=([^;]+)`),
	"provider":    regexp.MustCompile(`(?i)Provider=([^;]+)`),
	"security":    regexp.MustCompile(`(?i)Integrated Security=([^;]+)`),
	"application": regexp.MustCompile(`(?i)Application Name=([^;]+)`),
}

// parseConnectionString splits an OLE DB connection string into its
// well-known components.
func parseConnectionString(connString string) map[string]string {
	components := make(map[string]string)
	if connString == "" {
		return components
	}
	for name, re := range connStringPatterns {
		if m := re.FindStringSubmatch(connString); m != nil {
			components[name] = strings.TrimSpace(m[1])
		}
	}
	return components
}

var (
	exprParamPattern = regexp.MustCompile(`(?i)\$(?:Project::|Package::)([\w\d_]+)`)
	exprVarPattern   = regexp.MustCompile(`(?i)@\[(?:User::|System::)?([^\]]+)\]`)
)

// connectionExpressionAnalysis reports parameter/variable references
// embedded in a connection string.
type connectionExpressionAnalysis struct {
	UsesParameters  []string
	UsesVariables   []string
	IsParameterized bool
}

func analyzeConnectionExpression(connString string) connectionExpressionAnalysis {
	var analysis connectionExpressionAnalysis
	if connString == "" {
		return analysis
	}
	for _, m := range exprParamPattern.FindAllStringSubmatch(connString, -1) {
		analysis.UsesParameters = append(analysis.UsesParameters, m[1])
		analysis.IsParameterized = true
	}
	for _, m := range exprVarPattern.FindAllStringSubmatch(connString, -1) {
		analysis.UsesVariables = append(analysis.UsesVariables, m[1])
		analysis.IsParameterized = true
	}
	return analysis
}

// platformFromConnection infers a target platform name from a connection's
// provider/creation-name string, defaulting to sql_server.
func platformFromConnection(ctx connectionContext) string {
	provider := strings.ToLower(ctx.Components["provider"] + " " + ctx.CreationName)
	switch {
	case strings.Contains(provider, "sqloledb"), strings.Contains(provider, "sqlncli"), strings.Contains(provider, "msoledbsql"):
		return "sql_server"
	case strings.Contains(provider, "postgresql"), strings.Contains(provider, "npgsql"):
		return "postgresql"
	case strings.Contains(provider, "mysql"):
		return "mysql"
	case strings.Contains(provider, "oracle"), strings.Contains(provider, "oraoledb"):
		return "oracle"
	default:
		return "sql_server"
	}
}

// parseConnectionManagerFile parses one .conmgr file's decoded XML into a
// connectionContext, keyed by both name and GUID by the caller.
func parseConnectionManagerFile(decoded []byte, filePath string) (*connectionContext, error) {
	root, err := parseXML(decoded)
	if err != nil {
		return nil, err
	}

	name := attr(root, "DTS:ObjectName")
	guid := strings.Trim(attr(root, "DTS:DTSID"), "{}")
	creationName := attr(root, "DTS:CreationName")

	var connString string
	if objectData := xmlquery.FindOne(root, "DTS:ObjectData"); objectData != nil {
		if connMgr := xmlquery.FindOne(objectData, "DTS:ConnectionManager"); connMgr != nil {
			connString = attr(connMgr, "DTS:ConnectionString")
		}
	}

	return &connectionContext{
		Name:             name,
		GUID:             guid,
		CreationName:     creationName,
		ConnectionString: connString,
		FilePath:         filePath,
		Components:       parseConnectionString(connString),
	}, nil
}

// connectionNodesFromContext builds one connection node per distinct
// connection name found across all parsed .conmgr contexts.
func connectionNodesFromContext(byKey map[string]*connectionContext) []*model.Node {
	seen := make(map[string]struct{})
	var nodes []*model.Node

	for _, ctx := range byKey {
		if ctx.Name == "" {
			continue
		}
		if _, done := seen[ctx.Name]; done {
			continue
		}
		seen[ctx.Name] = struct{}{}

		analysis := analyzeConnectionExpression(ctx.ConnectionString)
		node := model.NewNode(connectionID(ctx.Name), model.KindConnection, ctx.Name).
			WithProperty("technology", "SSIS").
			WithProperty("guid", ctx.GUID).
			WithProperty("server", ctx.Components["server"]).
			WithProperty("database", ctx.Components["database"]).
			WithProperty("provider", ctx.Components["provider"]).
			WithProperty("security", ctx.Components["security"]).
			WithProperty("connection_string", ctx.ConnectionString).
			WithProperty("creation_name", ctx.CreationName).
			WithProperty("conmgr_file", ctx.FilePath).
			WithProperty("is_parameterized", analysis.IsParameterized).
			WithProperty("uses_parameters", analysis.UsesParameters).
			WithProperty("uses_variables", analysis.UsesVariables)
		nodes = append(nodes, node)
	}

	return nodes
}

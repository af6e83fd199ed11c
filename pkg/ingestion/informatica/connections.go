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
)

// connectionContext is the enriched view of one top-level CONNECTION
// definition, keyed by connection name.
type connectionContext struct {
	Name             string
	Type             string
	ConnectString    string
	UserName         string
	Components       map[string]string // user, connect_string
}

var connStringPattern = regexp.MustCompile(`(?i)^([\w\$]+)/[^@]*@(.+)$`)

// parseConnectionString splits Informatica's "user/password@tnsname" native
// connect string shape into its components. Connections configured with an
// explicit CONNECTSTRING attribute that does not follow that shape are kept
// whole under "connect_string".
func parseConnectionString(connString string) map[string]string {
	components := make(map[string]string)
	if connString == "" {
		return components
	}
	if m := connStringPattern.FindStringSubmatch(connString); m != nil {
		components["user"] = m[1]
		components["connect_string"] = m[2]
		return components
	}
	components["connect_string"] = connString
	return components
}

// parseGlobalConnections scans a decoded PowerCenter XML document for
// top-level CONNECTION definitions, which may appear in either the workflow
// or the mapping export depending on how the repository was exported.
func parseGlobalConnections(root *xmlquery.Node) map[string]*connectionContext {
	contexts := make(map[string]*connectionContext)
	for _, conn := range xmlquery.Find(root, "//CONNECTION") {
		name := attr(conn, "NAME")
		if name == "" {
			continue
		}
		connString := attr(conn, "CONNECTSTRING")
		ctx := &connectionContext{
			Name:          name,
			Type:          attr(conn, "TYPE"),
			ConnectString: connString,
			UserName:      attr(conn, "USERNAME"),
			Components:    parseConnectionString(connString),
		}
		contexts[name] = ctx
	}
	return contexts
}

func connectionNodesFromContext(byName map[string]*connectionContext) []*model.Node {
	var nodes []*model.Node
	for _, ctx := range byName {
		node := model.NewNode(connectionID(ctx.Name), model.KindConnection, ctx.Name).
			WithProperty("technology", "Informatica").
			WithProperty("connection_type", ctx.Type).
			WithProperty("user", ctx.Components["user"]).
			WithProperty("connect_string", ctx.Components["connect_string"]).
			WithProperty("username", ctx.UserName).
			WithProperty("inferred_platform", normalizeConnectionType(ctx.Type))
		nodes = append(nodes, node)
	}
	return nodes
}

// sessionConnections maps a SESSION's name to the connection names its
// CONNECTIONREFERENCE children bind to,
// keyed by the source/target instance the connection applies to. Cached
// per-workflow so Lookup/relational transformations can resolve which
// connection a session runs them against, the way the original loader's
// session-connection cache does.
func sessionConnections(workflowRoot *xmlquery.Node) map[string]map[string]string {
	result := make(map[string]map[string]string)
	for _, session := range xmlquery.Find(workflowRoot, ".//SESSION") {
		sessionName := attr(session, "NAME")
		if sessionName == "" {
			continue
		}
		byInstance := make(map[string]string)
		for _, ref := range xmlquery.Find(session, "CONNECTIONREFERENCE") {
			instance := attr(ref, "SINSTANCENAME")
			connName := attr(ref, "CONNECTIONNAME")
			if instance != "" && connName != "" {
				byInstance[instance] = connName
			}
		}
		if len(byInstance) > 0 {
			result[sessionName] = byInstance
		}
	}
	return result
}

// normalizeConnectionType buckets an Informatica connection's relational
// subtype (Oracle, ODBC, SQL Server, ...) down to typemap's target-platform
// naming for downstream type-conversion reports.
func normalizeConnectionType(connType string) string {
	lower := strings.ToLower(connType)
	switch {
	case strings.Contains(lower, "oracle"):
		return "oracle"
	case strings.Contains(lower, "sql server"), strings.Contains(lower, "sqlserver"):
		return "sql_server"
	case strings.Contains(lower, "postgres"):
		return "postgresql"
	case strings.Contains(lower, "mysql"):
		return "mysql"
	case strings.Contains(lower, "snowflake"):
		return "snowflake"
	default:
		return "sql_server"
	}
}

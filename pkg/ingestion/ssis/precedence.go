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

// parseExpressionDependencies scans expression, SQL, or connection-string
// text for SSIS variable/parameter references and emits uses_variable /
// uses_parameter edges against nodes already present in paramVarIDs.
func parseExpressionDependencies(expression, taskID string, paramVarIDs map[string]string, edges *[]*model.Edge) {
	if expression == "" {
		return
	}

	known := make(map[string]struct{}, len(paramVarIDs))
	for _, id := range paramVarIDs {
		known[id] = struct{}{}
	}

	for _, m := range exprVarPattern.FindAllStringSubmatch(expression, -1) {
		for _, namespace := range []string{"User", "System"} {
			id := variableID(namespace, m[1])
			if _, ok := known[id]; ok {
				*edges = append(*edges, model.NewEdge(taskID, id, model.RelationUsesVariable))
				break
			}
		}
	}

	for _, m := range exprParamPattern.FindAllStringSubmatch(expression, -1) {
		id := parameterID(m[1])
		if _, ok := known[id]; ok {
			*edges = append(*edges, model.NewEdge(taskID, id, model.RelationUsesParameter))
		}
	}
}

var guidPattern = regexp.MustCompile(`(?i)\{([A-F0-9-]+)\}`)

// parseParameterMapping resolves a ParameterMapping property string (format
// `"Position:Direction",{GUID};...`) against paramVarIDs and emits
// uses_parameter / uses_variable edges for each GUID that resolves.
func parseParameterMapping(mappingText, taskID string, paramVarIDs map[string]string, edges *[]*model.Edge) {
	if mappingText == "" {
		return
	}
	for _, m := range guidPattern.FindAllStringSubmatch(mappingText, -1) {
		guid := m[1]
		targetID, ok := paramVarIDs[guid]
		if !ok {
			continue
		}
		relation := model.RelationUsesParameter
		if strings.HasPrefix(targetID, "variable:") {
			relation = model.RelationUsesVariable
		}
		*edges = append(*edges, model.NewEdge(taskID, targetID, relation))
	}
}

// extractTaskNameFromRef extracts the task name from an SSIS precedence
// reference of the form "Package\TaskName".
func extractTaskNameFromRef(ref string) string {
	if idx := strings.LastIndex(ref, `\`); idx != -1 {
		return ref[idx+1:]
	}
	return ref
}

// parsePrecedenceConstraints emits precedes edges between sibling operations
// of pipelineID, dropping any constraint whose endpoints were not created as
// operation nodes in this package.
func parsePrecedenceConstraints(root *xmlquery.Node, pipelineID string, existingTaskIDs map[string]struct{}, edges *[]*model.Edge) {
	for _, constraint := range xmlquery.Find(root, "//DTS:PrecedenceConstraint") {
		from := attr(constraint, "DTS:From")
		to := attr(constraint, "DTS:To")
		if from == "" || to == "" {
			continue
		}

		fromTaskID := operationID(pipelineID, extractTaskNameFromRef(from))
		toTaskID := operationID(pipelineID, extractTaskNameFromRef(to))

		_, fromOK := existingTaskIDs[fromTaskID]
		_, toOK := existingTaskIDs[toTaskID]
		if fromOK && toOK {
			*edges = append(*edges, model.NewEdge(fromTaskID, toTaskID, model.RelationPrecedes))
		}
	}
}

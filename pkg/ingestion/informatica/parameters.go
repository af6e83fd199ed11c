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
	"github.com/antchfx/xmlquery"
	"github.com/metazcode/mzc/pkg/model"
)

// mappingParametersAndVariables parses a MAPPING's MAPPINGPARAMETER and
// MAPPINGVARIABLE declarations into parameter/variable nodes scoped to the
// pipeline, plus a name→node-id map so expression text referencing
// "$$VarName"/"$ParamName" can be resolved elsewhere.
func mappingParametersAndVariables(mapping *xmlquery.Node, pID, filePath string) ([]*model.Node, map[string]string) {
	var nodes []*model.Node
	idMap := make(map[string]string)

	for _, p := range xmlquery.Find(mapping, "MAPPINGPARAMETER") {
		name := attr(p, "NAME")
		if name == "" {
			continue
		}
		id := parameterID(name)
		node := model.NewNode(id, model.KindParameter, name).
			WithProperty("technology", "Informatica").
			WithProperty("file_path", filePath).
			WithProperty("pipeline_id", pID).
			WithProperty("data_type", attr(p, "DATATYPE")).
			WithProperty("default_value", attr(p, "DEFAULTVALUE")).
			WithProperty("is_expression_var", false).
			WithProperty("scope", "mapping")
		nodes = append(nodes, node)
		idMap[name] = id
	}

	for _, v := range xmlquery.Find(mapping, "MAPPINGVARIABLE") {
		name := attr(v, "NAME")
		if name == "" {
			continue
		}
		id := variableID("mapping", name)
		node := model.NewNode(id, model.KindVariable, name).
			WithProperty("technology", "Informatica").
			WithProperty("file_path", filePath).
			WithProperty("pipeline_id", pID).
			WithProperty("data_type", attr(v, "DATATYPE")).
			WithProperty("default_value", attr(v, "DEFAULTVALUE")).
			WithProperty("aggregation", attr(v, "AGGFUNCTION")).
			WithProperty("scope", "mapping")
		nodes = append(nodes, node)
		idMap[name] = id
	}

	return nodes, idMap
}

// workflowVariables parses a WORKFLOW's WORKFLOWVARIABLE declarations into
// variable nodes scoped to the pipeline.
func workflowVariables(workflow *xmlquery.Node, pID, filePath string) []*model.Node {
	var nodes []*model.Node
	for _, v := range xmlquery.Find(workflow, "WORKFLOWVARIABLE") {
		name := attr(v, "NAME")
		if name == "" {
			continue
		}
		node := model.NewNode(variableID("workflow", name), model.KindVariable, name).
			WithProperty("technology", "Informatica").
			WithProperty("file_path", filePath).
			WithProperty("pipeline_id", pID).
			WithProperty("data_type", attr(v, "DATATYPE")).
			WithProperty("default_value", attr(v, "DEFAULTVALUE")).
			WithProperty("is_persistent", attr(v, "ISPERSISTENT") == "YES").
			WithProperty("scope", "workflow")
		nodes = append(nodes, node)
	}
	return nodes
}

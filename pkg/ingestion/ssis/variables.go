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
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/metazcode/mzc/pkg/model"
)

// packageVariables parses DTS:Variables into variable nodes plus a
// GUID→node-id map. Namespace defaults to "User" when unset, matching SSIS's
// own default scoping.
func packageVariables(root *xmlquery.Node, filePath string) ([]*model.Node, map[string]string) {
	container := xmlquery.FindOne(root, "DTS:Variables")
	if container == nil {
		return nil, nil
	}

	var nodes []*model.Node
	idMap := make(map[string]string)

	for _, varXML := range xmlquery.Find(container, "DTS:Variable") {
		name := attr(varXML, "DTS:ObjectName")
		guid := strings.Trim(attr(varXML, "DTS:DTSID"), "{}")
		if name == "" || guid == "" {
			continue
		}
		namespace := attr(varXML, "DTS:Namespace")
		if namespace == "" {
			namespace = "User"
		}

		var value, dataType string
		if valueElem := xmlquery.FindOne(varXML, "DTS:VariableValue"); valueElem != nil {
			value = valueElem.InnerText()
			dataType = attr(valueElem, "DTS:DataType")
		}
		if dataType == "" {
			dataType = "unknown"
		}

		id := variableID(namespace, name)
		node := model.NewNode(id, model.KindVariable, namespace+"."+name).
			WithProperty("file_path", filePath).
			WithProperty("technology", "SSIS").
			WithProperty("guid", guid).
			WithProperty("data_type", dataType).
			WithProperty("value", value).
			WithProperty("namespace", namespace).
			WithProperty("scope", "package")

		nodes = append(nodes, node)
		idMap[guid] = id
	}

	return nodes, idMap
}

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

// projectParameter is one Project.params entry.
type projectParameter struct {
	Name     string
	Value    string
	FilePath string
}

func parseProjectParamsFile(decoded []byte, filePath string) (*projectParameter, error) {
	root, err := parseXML(decoded)
	if err != nil {
		return nil, err
	}
	name := attr(root, "DTS:ObjectName")
	if name == "" {
		return nil, nil
	}
	return &projectParameter{
		Name:     name,
		Value:    attr(root, "DTS:Value"),
		FilePath: filePath,
	}, nil
}

func projectParameterNodes(params map[string]*projectParameter) []*model.Node {
	var nodes []*model.Node
	for name, p := range params {
		node := model.NewNode(parameterID(name), model.KindParameter, name).
			WithProperty("value", p.Value).
			WithProperty("file_path", p.FilePath).
			WithProperty("scope", "project")
		nodes = append(nodes, node)
	}
	return nodes
}

// packageParameters parses DTS:PackageParameters into parameter nodes plus a
// GUID→node-id map used to resolve parameter-mapping references.
func packageParameters(root *xmlquery.Node, filePath string) ([]*model.Node, map[string]string) {
	container := xmlquery.FindOne(root, "DTS:PackageParameters")
	if container == nil {
		return nil, nil
	}

	var nodes []*model.Node
	idMap := make(map[string]string)

	for _, paramXML := range xmlquery.Find(container, "DTS:PackageParameter") {
		name := attr(paramXML, "DTS:ObjectName")
		guid := strings.Trim(attr(paramXML, "DTS:DTSID"), "{}")
		if name == "" || guid == "" {
			continue
		}
		dataType := attr(paramXML, "DTS:DataType")
		if dataType == "" {
			dataType = "unknown"
		}
		required := strings.EqualFold(attr(paramXML, "DTS:Required"), "true")
		value := strings.Trim(dtsProperty(paramXML, "ParameterValue"), `"`)

		node := model.NewNode(parameterID(name), model.KindParameter, name).
			WithProperty("file_path", filePath).
			WithProperty("technology", "SSIS").
			WithProperty("guid", guid).
			WithProperty("data_type", dataType).
			WithProperty("required", required).
			WithProperty("value", value).
			WithProperty("scope", "package")

		nodes = append(nodes, node)
		idMap[guid] = parameterID(name)
	}

	return nodes, idMap
}

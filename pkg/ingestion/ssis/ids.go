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

// Package ssis parses SQL Server Integration Services projects (.dtsx
// packages, .conmgr connection managers, Project.params files) into the
// canonical node/edge model.
package ssis

import "strings"

func pipelineID(packageName string) string {
	return "pipeline:" + packageName
}

func operationID(pipelineID, taskName string) string {
	return pipelineID + ":operation:" + taskName
}

func connectionID(name string) string {
	return "connection:" + name
}

func parameterID(name string) string {
	return "parameter:" + name
}

func variableID(namespace, name string) string {
	return "variable:" + namespace + "." + name
}

func tableID(schemaQualifiedName string) string {
	return "table:" + strings.Trim(schemaQualifiedName, "[]")
}

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

// Package informatica parses PowerCenter workflow/mapping XML exports into
// the canonical node/edge model. A WORKFLOW is one pipeline: every
// TASKINSTANCE/SESSION it runs, and every transformation instance in the
// mapping a session executes, becomes an operation node hanging off that one
// pipeline id — there is no separate workflow/mapping node kind, matching the
// closed kind set pkg/ingestion/ssis also targets.
package informatica

func pipelineID(workflowName string) string {
	return "pipeline:" + workflowName
}

// operationID names one operation instance (a TASKINSTANCE or a
// transformation within the mapping a session runs) under its pipeline.
func operationID(pID, kind, name string) string {
	return pID + ":" + kind + ":" + name
}

func connectionID(name string) string {
	return "connection:" + name
}

func parameterID(name string) string {
	return "parameter:" + name
}

func variableID(scope, name string) string {
	return "variable:" + scope + "." + name
}

func sourceAssetID(name string) string {
	return "data_asset:source:" + name
}

func targetAssetID(name string) string {
	return "data_asset:target:" + name
}

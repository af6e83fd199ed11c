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

var scriptLanguageNames = map[string]string{
	"VisualBasic": "VB.NET",
	"VB":          "VB.NET",
	"CSharp":      "C#",
	"CS":          "C#",
}

// scriptCodeContainers are the element names known to hold embedded Script
// Task source, scanned in order under the task's object-data subtree.
var scriptCodeContainers = []string{"ScriptCode", "SourceCode", "VSTAScriptProjectStorage", "SQLTask:ScriptCode"}

var scriptEntryPointPattern = regexp.MustCompile(`(?i)Sub\s+Main|void\s+Main`)

func extractScriptSource(scriptTaskData *xmlquery.Node) string {
	for _, container := range scriptCodeContainers {
		if elem := xmlquery.FindOne(scriptTaskData, ".//"+container); elem != nil && strings.TrimSpace(elem.InnerText()) != "" {
			return elem.InnerText()
		}
	}
	// Fall back to scanning the whole subtree for something that looks like
	// a script entry point, in case the storage element uses an unexpected
	// tag name.
	text := scriptTaskData.InnerText()
	if scriptEntryPointPattern.MatchString(text) {
		return text
	}
	return ""
}

type scriptComplexity string

const (
	complexityLow    scriptComplexity = "low"
	complexityMedium scriptComplexity = "medium"
	complexityHigh   scriptComplexity = "high"
)

var complexityKeywords = []string{"For", "While", "If", "Try", "Catch", "Function", "Sub", "Class"}

func analyzeScriptComplexity(code string) scriptComplexity {
	weight := 0
	for _, kw := range complexityKeywords {
		weight += strings.Count(code, kw)
	}
	switch {
	case weight > 20:
		return complexityHigh
	case weight > 6:
		return complexityMedium
	default:
		return complexityLow
	}
}

var frameworkDependencyPatterns = map[string]*regexp.Regexp{
	"ssis_variables": regexp.MustCompile(`Dts\.Variables`),
	"ado_net":        regexp.MustCompile(`(?i)SqlConnection|SqlCommand|OleDbConnection`),
	"file_system":    regexp.MustCompile(`(?i)System\.IO|File\.(Read|Write|Open)`),
	"http":           regexp.MustCompile(`(?i)HttpClient|WebRequest`),
}

func detectFrameworkDependencies(code string) []string {
	var deps []string
	for name, re := range frameworkDependencyPatterns {
		if re.MatchString(code) {
			deps = append(deps, name)
		}
	}
	return deps
}

// parseScriptTask extracts language, variable scope, entry point, and
// embedded source from a Script Task, wiring dependency edges for every
// referenced variable.
func parseScriptTask(objectData *xmlquery.Node, taskID string, operationNode *model.Node, paramVarIDs map[string]string, edges *[]*model.Edge) {
	scriptTaskData := xmlquery.FindOne(objectData, "ScriptTaskData")
	if scriptTaskData == nil {
		scriptTaskData = xmlquery.FindOne(objectData, "ScriptProject")
	}
	if scriptTaskData == nil {
		return
	}

	language := attr(scriptTaskData, "ScriptLanguage")
	if mapped, ok := scriptLanguageNames[language]; ok {
		language = mapped
	} else if language == "" {
		language = "VB.NET"
	}

	readOnly := splitCSV(attr(scriptTaskData, "ReadOnlyVariables"))
	readWrite := splitCSV(attr(scriptTaskData, "ReadWriteVariables"))
	entryPoint := attr(scriptTaskData, "EntryPoint")
	if entryPoint == "" {
		entryPoint = "Main"
	}
	projectName := attr(scriptTaskData, "ScriptProjectName")

	code := extractScriptSource(scriptTaskData)

	info := map[string]any{
		"script_language":     language,
		"script_code":         code,
		"readonly_variables":  readOnly,
		"readwrite_variables": readWrite,
		"entry_point":         entryPoint,
		"script_project_name": projectName,
		"has_custom_code":     code != "",
	}
	if code != "" {
		info["complexity"] = analyzeScriptComplexity(code)
		info["framework_dependencies"] = detectFrameworkDependencies(code)
	}
	operationNode.WithProperty("custom_script", info)

	knownIDs := make(map[string]struct{}, len(paramVarIDs))
	for _, v := range paramVarIDs {
		knownIDs[v] = struct{}{}
	}

	allVars := append(append([]string{}, readOnly...), readWrite...)
	for _, raw := range allVars {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "User::"))
		if name == "" {
			continue
		}
		id := variableID("User", name)
		if _, ok := knownIDs[id]; ok {
			*edges = append(*edges, model.NewEdge(taskID, id, model.RelationUsesVariable))
		}
	}

	if code != "" {
		parseExpressionDependencies(code, taskID, paramVarIDs, edges)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

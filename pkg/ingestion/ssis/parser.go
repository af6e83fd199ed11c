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
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/ingestion"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/typemap"
)

var filePatterns = []string{"*.dtsx", "*.conmgr", "Project.params"}

// operationSubtype is SSIS's four-way task classification, used to dispatch
// each DTS:Executable into the right parser.
type operationSubtype string

const (
	subtypeDataFlow   operationSubtype = "DATA_FLOW"
	subtypeExecute    operationSubtype = "EXECUTE"
	subtypeScript     operationSubtype = "SCRIPT"
	subtypeControlFlow operationSubtype = "CONTROL_FLOW"
)

// categorizeOperationSubtype classifies an executable by its DTS:ExecutableType.
// An executable type this switch doesn't recognize defaults to EXECUTE
// (with a warning logged) rather than CONTROL_FLOW: an unrecognized task is
// far more likely to be some other execute-style task than a container.
func categorizeOperationSubtype(executableType string) operationSubtype {
	switch {
	case strings.Contains(executableType, "Pipeline"):
		return subtypeDataFlow
	case strings.Contains(executableType, "FORLOOP"), strings.Contains(executableType, "FOREACHLOOP"), strings.Contains(executableType, "SEQUENCE"):
		return subtypeControlFlow
	case strings.Contains(executableType, "ExecuteSQLTask"), strings.Contains(executableType, "FileSystemTask"):
		return subtypeExecute
	case strings.Contains(executableType, "ScriptTask"):
		return subtypeScript
	default:
		slog.Warn("ingestion.ssis.subtype.unknown", "executable_type", executableType)
		return subtypeExecute
	}
}

// Parse walks projectRoot for .dtsx packages, .conmgr connection managers,
// and a Project.params file, converting the project into canonical nodes and
// edges. targetPlatforms drives the type-mapping enrichment attached to
// every typed column and table; a nil slice enriches for typemap's defaults.
func Parse(projectRoot string, targetPlatforms []typemap.TargetPlatform) ([]*model.Node, []*model.Edge, error) {
	if len(targetPlatforms) == 0 {
		targetPlatforms = typemap.DefaultTargetPlatforms
	}

	files, err := ingestion.DiscoverFiles(projectRoot, filePatterns)
	if err != nil {
		return nil, nil, mzerrors.NewParseError(projectRoot, err)
	}

	var nodes []*model.Node
	var edges []*model.Edge

	connByGUID := make(map[string]*connectionContext)
	connByName := make(map[string]*connectionContext)
	projectParams := make(map[string]*projectParameter)
	var dtsxFiles []string

	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".conmgr"):
			decoded, rerr := ingestion.ReadLegacyXML(f)
			if rerr != nil {
				continue
			}
			ctx, perr := parseConnectionManagerFile(decoded, f)
			if perr != nil || ctx == nil || ctx.Name == "" {
				continue
			}
			connByGUID[ctx.GUID] = ctx
			connByName[ctx.Name] = ctx
		case strings.EqualFold(filepath.Base(f), "Project.params"):
			decoded, rerr := ingestion.ReadLegacyXML(f)
			if rerr != nil {
				continue
			}
			param, perr := parseProjectParamsFile(decoded, f)
			if perr != nil || param == nil {
				continue
			}
			projectParams[param.Name] = param
		case strings.HasSuffix(f, ".dtsx"):
			dtsxFiles = append(dtsxFiles, f)
		}
	}

	nodes = append(nodes, connectionNodesFromContext(connByGUID)...)
	nodes = append(nodes, projectParameterNodes(projectParams)...)

	connectionIDs := make(map[string]string, len(connByGUID))
	for guid, ctx := range connByGUID {
		connectionIDs[guid] = connectionID(ctx.Name)
	}

	for _, path := range dtsxFiles {
		pkgNodes, pkgEdges, perr := parsePackageFile(path, connByName, connectionIDs, targetPlatforms)
		if perr != nil {
			continue
		}
		nodes = append(nodes, pkgNodes...)
		edges = append(edges, pkgEdges...)
	}

	return nodes, edges, nil
}

// parsePackageFile parses a single .dtsx package into its pipeline node, the
// package's own connection/parameter/variable nodes, one operation node per
// task, and the edges connecting them.
func parsePackageFile(
	path string,
	externalConnByName map[string]*connectionContext,
	connectionIDs map[string]string,
	targetPlatforms []typemap.TargetPlatform,
) ([]*model.Node, []*model.Edge, error) {
	decoded, err := ingestion.ReadLegacyXML(path)
	if err != nil {
		return nil, nil, mzerrors.NewParseError(path, err)
	}
	root, err := parseXML(decoded)
	if err != nil {
		return nil, nil, mzerrors.NewParseError(path, err)
	}

	packageName := attr(root, "DTS:ObjectName")
	if packageName == "" {
		packageName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	pID := pipelineID(packageName)

	var nodes []*model.Node
	var edges []*model.Edge

	pipelineNode := model.NewNode(pID, model.KindPipeline, packageName).
		WithProperty("technology", "SSIS").
		WithProperty("file_path", path)
	nodes = append(nodes, pipelineNode)

	localConnIDs := parseLocalConnectionManagers(root, externalConnByName, connectionIDs, pID, &nodes, &edges)

	paramNodes, packageParamIDs := packageParameters(root, path)
	for _, n := range paramNodes {
		n.WithProperty("pipeline_id", pID)
		nodes = append(nodes, n)
		edges = append(edges, model.NewEdge(pID, n.ID, model.RelationContains))
	}

	varNodes, variableIDs := packageVariables(root, path)
	for _, n := range varNodes {
		n.WithProperty("pipeline_id", pID)
		nodes = append(nodes, n)
		edges = append(edges, model.NewEdge(pID, n.ID, model.RelationContains))
	}

	paramVarIDs := make(map[string]string, len(packageParamIDs)+len(variableIDs))
	for guid, id := range packageParamIDs {
		paramVarIDs[guid] = id
	}
	for guid, id := range variableIDs {
		paramVarIDs[guid] = id
	}

	tableSeen := make(map[string]struct{})
	existingTaskIDs := make(map[string]struct{})

	executables := xmlquery.Find(root, "DTS:Executables/DTS:Executable")
	for _, exec := range executables {
		parseExecutable(exec, pID, localConnIDs, paramVarIDs, tableSeen, targetPlatforms, &nodes, &edges, existingTaskIDs)
	}

	parsePrecedenceConstraints(root, pID, existingTaskIDs, &edges)

	return nodes, edges, nil
}

// parseLocalConnectionManagers merges a package's embedded
// DTS:ConnectionManagers entries with the external .conmgr contexts parsed
// project-wide, returning a GUID-to-connection-node-id map local to this
// package.
func parseLocalConnectionManagers(
	root *xmlquery.Node,
	externalConnByName map[string]*connectionContext,
	globalConnectionIDs map[string]string,
	pipelineID string,
	nodes *[]*model.Node,
	edges *[]*model.Edge,
) map[string]string {
	localConnIDs := make(map[string]string, len(globalConnectionIDs))
	for guid, id := range globalConnectionIDs {
		localConnIDs[guid] = id
	}

	for _, connMgr := range xmlquery.Find(root, "DTS:ConnectionManagers/DTS:ConnectionManager") {
		name := attr(connMgr, "DTS:ObjectName")
		guid := strings.Trim(attr(connMgr, "DTS:DTSID"), "{}")
		if name == "" || guid == "" {
			continue
		}
		if _, known := localConnIDs[guid]; known {
			continue
		}

		if ext, ok := externalConnByName[name]; ok {
			localConnIDs[guid] = connectionID(ext.Name)
			continue
		}

		creationName := attr(connMgr, "DTS:CreationName")
		var connString string
		if objectData := xmlquery.FindOne(connMgr, "DTS:ObjectData/DTS:ConnectionManager"); objectData != nil {
			connString = attr(objectData, "DTS:ConnectionString")
		}
		ctx := connectionContext{Name: name, GUID: guid, CreationName: creationName, ConnectionString: connString, Components: parseConnectionString(connString)}
		analysis := analyzeConnectionExpression(connString)

		id := connectionID(name)
		localConnIDs[guid] = id
		*nodes = append(*nodes, model.NewNode(id, model.KindConnection, name).
			WithProperty("technology", "SSIS").
			WithProperty("guid", guid).
			WithProperty("server", ctx.Components["server"]).
			WithProperty("database", ctx.Components["database"]).
			WithProperty("provider", ctx.Components["provider"]).
			WithProperty("creation_name", creationName).
			WithProperty("scope", "package_local").
			WithProperty("pipeline_id", pipelineID).
			WithProperty("is_parameterized", analysis.IsParameterized).
			WithProperty("uses_parameters", analysis.UsesParameters).
			WithProperty("uses_variables", analysis.UsesVariables))
	}

	return localConnIDs
}

// parseExecutable converts one DTS:Executable (and, for Sequence
// Containers, its nested children) into an operation node plus whatever
// edges its subtype dispatch produces.
func parseExecutable(
	exec *xmlquery.Node,
	pipelineID string,
	connectionIDs map[string]string,
	paramVarIDs map[string]string,
	tableSeen map[string]struct{},
	targetPlatforms []typemap.TargetPlatform,
	nodes *[]*model.Node,
	edges *[]*model.Edge,
	existingTaskIDs map[string]struct{},
) {
	taskName := attr(exec, "DTS:ObjectName")
	if taskName == "" {
		return
	}
	executableType := attr(exec, "DTS:ExecutableType")
	subtype := categorizeOperationSubtype(executableType)

	taskID := operationID(pipelineID, taskName)
	existingTaskIDs[taskID] = struct{}{}

	opNode := model.NewNode(taskID, model.KindOperation, taskName).
		WithProperty("technology", "SSIS").
		WithProperty("pipeline_id", pipelineID).
		WithProperty("executable_type", executableType).
		WithProperty("operation_subtype", string(subtype)).
		WithProperty("description", attr(exec, "DTS:Description"))
	*nodes = append(*nodes, opNode)
	*edges = append(*edges, model.NewEdge(pipelineID, taskID, model.RelationContains))

	objectData := xmlquery.FindOne(exec, "DTS:ObjectData")

	switch subtype {
	case subtypeDataFlow:
		if objectData != nil {
			parseDataFlow(objectData, taskID, opNode, connectionIDs, paramVarIDs, tableSeen, targetPlatforms, nodes, edges)
		}
	case subtypeExecute:
		if objectData != nil {
			parseExecuteSQLTask(objectData, taskID, opNode, connectionIDs, paramVarIDs, tableSeen, nodes, edges)
		}
	case subtypeScript:
		if objectData != nil {
			parseScriptTask(objectData, taskID, opNode, paramVarIDs, edges)
		}
	case subtypeControlFlow:
		for _, child := range xmlquery.Find(exec, "DTS:Executables/DTS:Executable") {
			parseExecutable(child, pipelineID, connectionIDs, paramVarIDs, tableSeen, targetPlatforms, nodes, edges, existingTaskIDs)
		}
	}
}

// parseDataFlow dispatches every component of a Microsoft.Pipeline task's
// embedded data flow.
func parseDataFlow(
	objectData *xmlquery.Node,
	taskID string,
	opNode *model.Node,
	connectionIDs map[string]string,
	paramVarIDs map[string]string,
	tableSeen map[string]struct{},
	targetPlatforms []typemap.TargetPlatform,
	nodes *[]*model.Node,
	edges *[]*model.Edge,
) {
	pipeline := xmlquery.FindOne(objectData, "pipeline")
	if pipeline == nil {
		return
	}

	dctx := &dataflowContext{
		taskID:          taskID,
		operationNode:   opNode,
		connectionIDs:   connectionIDs,
		paramVarIDs:     paramVarIDs,
		tableSeen:       tableSeen,
		targetPlatforms: targetPlatforms,
		nodes:           nodes,
		edges:           edges,
	}

	for _, component := range xmlquery.Find(pipeline, "components/component") {
		parseDataflowComponent(component, dctx)
	}
}

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
	"path/filepath"
	"strings"

	"github.com/antchfx/xmlquery"
	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/ingestion"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/typemap"
)

var (
	workflowFilePatterns = []string{"wf_*.xml", "wf_*.XML", "*workflow*.xml", "*workflow*.XML"}
	mappingFilePatterns  = []string{"Mapping_*.XML", "Mapping_*.xml", "m_*.XML", "m_*.xml", "*mapping*.XML", "*mapping*.xml"}
	allXMLPattern        = []string{"*.xml", "*.XML"}
)

// Parse walks projectRoot for PowerCenter workflow exports (wf_*.xml /
// *workflow*.xml) and, for each, the sibling mapping export its sessions run
// (Mapping_*.XML / m_*.XML / *mapping*.xml), converting the pair into
// canonical nodes and edges. Connections declared anywhere under
// projectRoot are parsed project-wide before any workflow, mirroring SSIS's
// connection/parameter pre-pass. targetPlatforms drives the type-mapping
// enrichment attached to every typed field; a nil slice enriches for
// typemap's defaults.
func Parse(projectRoot string, targetPlatforms []typemap.TargetPlatform) ([]*model.Node, []*model.Edge, error) {
	if len(targetPlatforms) == 0 {
		targetPlatforms = typemap.DefaultTargetPlatforms
	}

	allFiles, err := ingestion.DiscoverFiles(projectRoot, allXMLPattern)
	if err != nil {
		return nil, nil, mzerrors.NewParseError(projectRoot, err)
	}

	connByName := make(map[string]*connectionContext)
	for _, f := range allFiles {
		decoded, rerr := ingestion.ReadLegacyXML(f)
		if rerr != nil {
			continue
		}
		root, perr := parseXML(decoded)
		if perr != nil {
			continue
		}
		for name, ctx := range parseGlobalConnections(root) {
			connByName[name] = ctx
		}
	}

	var nodes []*model.Node
	var edges []*model.Edge
	nodes = append(nodes, connectionNodesFromContext(connByName)...)

	workflowFiles, err := ingestion.DiscoverFiles(projectRoot, workflowFilePatterns)
	if err != nil {
		return nil, nil, mzerrors.NewParseError(projectRoot, err)
	}

	for _, wfFile := range workflowFiles {
		mappingFile := findMappingFile(wfFile, allFiles)
		wfNodes, wfEdges, perr := parseWorkflowFile(wfFile, mappingFile, targetPlatforms)
		if perr != nil {
			continue
		}
		nodes = append(nodes, wfNodes...)
		edges = append(edges, wfEdges...)
	}

	return nodes, edges, nil
}

// findMappingFile picks the mapping export paired with a workflow file: the
// first sibling (same directory) matching one of mappingFilePatterns, the
// way the original loader's directory.glob(pattern) fallback chain does.
func findMappingFile(workflowFile string, allFiles []string) string {
	dir := filepath.Dir(workflowFile)
	for _, pattern := range mappingFilePatterns {
		for _, f := range allFiles {
			if filepath.Dir(f) != dir {
				continue
			}
			if ok, _ := filepath.Match(pattern, filepath.Base(f)); ok {
				return f
			}
		}
	}
	return ""
}

// parseWorkflowFile parses one workflow export (TASKINSTANCE/WORKFLOWLINK)
// into the pipeline's operation nodes and precedence edges, then parses the
// paired mapping file's transformations/sources/targets/connectors under the
// same pipeline id.
func parseWorkflowFile(workflowFile, mappingFile string, targetPlatforms []typemap.TargetPlatform) ([]*model.Node, []*model.Edge, error) {
	decoded, err := ingestion.ReadLegacyXML(workflowFile)
	if err != nil {
		return nil, nil, mzerrors.NewParseError(workflowFile, err)
	}
	root, err := parseXML(decoded)
	if err != nil {
		return nil, nil, mzerrors.NewParseError(workflowFile, err)
	}

	workflow := xmlquery.FindOne(root, "//WORKFLOW")
	if workflow == nil {
		workflow = root
	}
	workflowName := attr(workflow, "NAME")
	if workflowName == "" {
		workflowName = strings.TrimSuffix(filepath.Base(workflowFile), filepath.Ext(workflowFile))
	}
	pID := pipelineID(workflowName)

	var nodes []*model.Node
	var edges []*model.Edge

	pipelineNode := model.NewNode(pID, model.KindPipeline, workflowName).
		WithProperty("technology", "Informatica").
		WithProperty("file_path", workflowFile).
		WithProperty("is_valid", attr(workflow, "ISVALID") != "NO")
	nodes = append(nodes, pipelineNode)

	wfVarNodes := workflowVariables(workflow, pID, workflowFile)
	nodes = append(nodes, wfVarNodes...)
	for _, v := range wfVarNodes {
		edges = append(edges, model.NewEdge(pID, v.ID, model.RelationContains))
	}

	sessConns := sessionConnections(workflow)

	taskIDs := make(map[string]struct{})
	for _, task := range xmlquery.Find(workflow, "TASKINSTANCE") {
		taskName := attr(task, "NAME")
		if taskName == "" {
			continue
		}
		taskID := operationID(pID, "task", taskName)
		taskIDs[taskName] = struct{}{}

		node := model.NewNode(taskID, model.KindOperation, taskName).
			WithProperty("technology", "Informatica").
			WithProperty("pipeline_id", pID).
			WithProperty("task_type", attr(task, "TASKTYPE")).
			WithProperty("operation_subtype", "task").
			WithProperty("is_enabled", attr(task, "ISENABLED") != "NO")
		nodes = append(nodes, node)
		edges = append(edges, model.NewEdge(pID, taskID, model.RelationContains))
	}

	for _, link := range xmlquery.Find(workflow, "WORKFLOWLINK") {
		from := attr(link, "FROMTASK")
		to := attr(link, "TOTASK")
		if from == "" || to == "" {
			continue
		}
		if _, ok := taskIDs[from]; !ok {
			continue
		}
		if _, ok := taskIDs[to]; !ok {
			continue
		}
		edge := model.NewEdge(operationID(pID, "task", from), operationID(pID, "task", to), model.RelationPrecedes).
			WithProperty("condition", attr(link, "CONDITION"))
		edges = append(edges, edge)
	}

	if mappingFile == "" {
		return nodes, edges, nil
	}

	mappingDecoded, err := ingestion.ReadLegacyXML(mappingFile)
	if err != nil {
		return nodes, edges, nil
	}
	mappingRoot, err := parseXML(mappingDecoded)
	if err != nil {
		return nodes, edges, nil
	}

	flatSessConns := flattenSessionConnections(sessConns)

	for _, mapping := range xmlquery.Find(mappingRoot, ".//MAPPING") {
		paramNodes, _ := mappingParametersAndVariables(mapping, pID, mappingFile)
		for _, n := range paramNodes {
			nodes = append(nodes, n)
			edges = append(edges, model.NewEdge(pID, n.ID, model.RelationContains))
		}
		parseMapping(mapping, pID, mappingFile, flatSessConns, targetPlatforms, &nodes, &edges)
	}

	return nodes, edges, nil
}

// flattenSessionConnections collapses the per-session instance->connection
// map into a single instance-name->connection-name map, since a mapping is
// normally run by exactly one session within its workflow.
func flattenSessionConnections(bySession map[string]map[string]string) map[string]string {
	flat := make(map[string]string)
	for _, byInstance := range bySession {
		for instance, conn := range byInstance {
			flat[instance] = conn
		}
	}
	return flat
}

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
	"sort"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/metazcode/mzc/pkg/model"
	"github.com/metazcode/mzc/pkg/typemap"
)

// instanceRef records, for one mapping INSTANCE, the canonical node id it
// resolved to and whether that id is a source/target data asset or a
// transformation operation — the information parseConnectors needs to pick
// reads_from/writes_to/depends_on.
type instanceRef struct {
	nodeID string
	role   string // "source", "target", "transformation"
}

func enrichField(targetPlatforms []typemap.TargetPlatform, field *xmlquery.Node) map[string]any {
	name := attr(field, "NAME")
	e := typemap.Enrich(
		typemap.TechnologyInformatica,
		attr(field, "DATATYPE"),
		attr(field, "LENGTH"), attr(field, "PRECISION"), attr(field, "SCALE"),
		attr(field, "NULLABLE") == "NULL" || attr(field, "NULLABLE") == "",
		targetPlatforms,
	)
	return map[string]any{
		"name":                  name,
		"key_type":              attr(field, "KEYTYPE"),
		"canonical_type":        string(e.CanonicalType),
		"target_types":          e.TargetTypes,
		"conversion_confidence": e.ConversionConfidence,
		"potential_issues":      e.PotentialIssues,
	}
}

func fieldsByNumber(fields []*xmlquery.Node, targetPlatforms []typemap.TargetPlatform) []map[string]any {
	type numbered struct {
		n     int
		field map[string]any
	}
	entries := make([]numbered, 0, len(fields))
	for _, f := range fields {
		n, _ := strconv.Atoi(attr(f, "FIELDNUMBER"))
		entries = append(entries, numbered{n: n, field: enrichField(targetPlatforms, f)})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].n < entries[j].n })
	out := make([]map[string]any, len(entries))
	for i, e := range entries {
		out[i] = e.field
	}
	return out
}

// parseDataSources parses every SOURCE definition in a mapping document into
// a DATA_ASSET node, keyed by source name.
func parseDataSources(mapping *xmlquery.Node, filePath string, targetPlatforms []typemap.TargetPlatform) map[string]*model.Node {
	sources := make(map[string]*model.Node)
	for _, src := range xmlquery.Find(mapping, "SOURCE") {
		name := attr(src, "NAME")
		if name == "" {
			continue
		}
		ctx := model.NewNodeTraceability(filePath, "xml", "Informatica", "//SOURCE[@NAME='"+name+"']", 0, "")
		node := model.NewNode(sourceAssetID(name), model.KindDataAsset, name).
			WithProperty("name", name).
			WithProperty("database_type", attr(src, "DATABASETYPE")).
			WithProperty("description", attr(src, "DESCRIPTION")).
			WithProperty("owner_name", attr(src, "OWNERNAME")).
			WithProperty("fields", fieldsByNumber(xmlquery.Find(src, "SOURCEFIELD"), targetPlatforms)).
			WithProperty("informatica_type", "source").
			WithProperty("asset_type", "table").
			WithContext(ctx)
		sources[name] = node
	}
	return sources
}

// parseDataTargets parses every TARGET definition in a mapping document into
// a DATA_ASSET node, keyed by target name.
func parseDataTargets(mapping *xmlquery.Node, filePath string, targetPlatforms []typemap.TargetPlatform) map[string]*model.Node {
	targets := make(map[string]*model.Node)
	for _, tgt := range xmlquery.Find(mapping, "TARGET") {
		name := attr(tgt, "NAME")
		if name == "" {
			continue
		}
		ctx := model.NewNodeTraceability(filePath, "xml", "Informatica", "//TARGET[@NAME='"+name+"']", 0, "")
		node := model.NewNode(targetAssetID(name), model.KindDataAsset, name).
			WithProperty("name", name).
			WithProperty("database_type", attr(tgt, "DATABASETYPE")).
			WithProperty("description", attr(tgt, "DESCRIPTION")).
			WithProperty("fields", fieldsByNumber(xmlquery.Find(tgt, "TARGETFIELD"), targetPlatforms)).
			WithProperty("informatica_type", "target").
			WithProperty("asset_type", "table").
			WithContext(ctx)
		targets[name] = node
	}
	return targets
}

// parseMapping converts one MAPPING element into its transformation
// operation nodes, data-asset source/target nodes, their containment edges
// under pID, and the connector-derived data-flow edges between them.
func parseMapping(
	mapping *xmlquery.Node,
	pID, filePath string,
	sessionConns map[string]string,
	targetPlatforms []typemap.TargetPlatform,
	nodes *[]*model.Node,
	edges *[]*model.Edge,
) {
	sources := parseDataSources(mapping, filePath, targetPlatforms)
	targets := parseDataTargets(mapping, filePath, targetPlatforms)

	transformDefs := make(map[string]*xmlquery.Node)
	for _, def := range xmlquery.Find(mapping, "TRANSFORMATION") {
		if name := attr(def, "NAME"); name != "" {
			transformDefs[name] = def
		}
	}

	byInstance := make(map[string]instanceRef)

	for _, src := range sources {
		*nodes = append(*nodes, src)
		*edges = append(*edges, model.NewEdge(pID, src.ID, model.RelationContains))
	}
	for _, tgt := range targets {
		*nodes = append(*nodes, tgt)
		*edges = append(*edges, model.NewEdge(pID, tgt.ID, model.RelationContains))
	}

	for _, instance := range xmlquery.Find(mapping, "INSTANCE") {
		name := attr(instance, "NAME")
		if name == "" {
			continue
		}
		switch attr(instance, "TYPE") {
		case "SOURCE":
			if src, ok := sources[attr(instance, "TRANSFORMATION_NAME")]; ok {
				byInstance[name] = instanceRef{nodeID: src.ID, role: "source"}
			} else if src, ok := sources[name]; ok {
				byInstance[name] = instanceRef{nodeID: src.ID, role: "source"}
			}
		case "TARGET":
			if tgt, ok := targets[attr(instance, "TRANSFORMATION_NAME")]; ok {
				byInstance[name] = instanceRef{nodeID: tgt.ID, role: "target"}
			} else if tgt, ok := targets[name]; ok {
				byInstance[name] = instanceRef{nodeID: tgt.ID, role: "target"}
			}
		default:
			defName := attr(instance, "TRANSFORMATION_NAME")
			if defName == "" {
				defName = name
			}
			def, ok := transformDefs[defName]
			if !ok {
				continue
			}
			opNode := parseTransformationInstance(instance, def, pID, sessionConns, edges)
			*nodes = append(*nodes, opNode)
			*edges = append(*edges, model.NewEdge(pID, opNode.ID, model.RelationContains))
			byInstance[name] = instanceRef{nodeID: opNode.ID, role: "transformation"}
		}
	}

	parseConnectors(mapping, byInstance, filePath, edges)
}

// parseConnectors converts every CONNECTOR into a data-flow edge, picking
// reads_from when the data originates at a source instance, writes_to when
// it terminates at a target instance (including straight Source Qualifier
// -> Target Definition connectors with no intervening transformation), and
// depends_on for transformation-to-transformation hops.
func parseConnectors(mapping *xmlquery.Node, byInstance map[string]instanceRef, filePath string, edges *[]*model.Edge) {
	for _, conn := range xmlquery.Find(mapping, "CONNECTOR") {
		fromInst := attr(conn, "FROMINSTANCE")
		toInst := attr(conn, "TOINSTANCE")
		from, fromOK := byInstance[fromInst]
		to, toOK := byInstance[toInst]
		if !fromOK || !toOK {
			continue
		}

		var relation model.Relation
		switch {
		case to.role == "target":
			relation = model.RelationWritesTo
		case from.role == "source":
			relation = model.RelationReadsFrom
		default:
			relation = model.RelationDependsOn
		}

		edge := model.NewEdge(from.nodeID, to.nodeID, relation).
			WithProperty("from_field", attr(conn, "FROMFIELD")).
			WithProperty("to_field", attr(conn, "TOFIELD")).
			WithContext(model.NewEdgeTraceability(filePath, "Informatica", model.DerivationXMLMetadata, "CONNECTOR",
				model.NewXMLDerivationContext("CONNECTOR", "FROMINSTANCE/TOINSTANCE", ""), model.ConfidenceHigh))
		*edges = append(*edges, edge)
	}
}

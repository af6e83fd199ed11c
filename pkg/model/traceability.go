// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package model

import "path/filepath"

// DerivationMethod is the closed set of ways an edge's relationship was
// derived from source material.
type DerivationMethod string

const (
	DerivationXMLMetadata     DerivationMethod = "xml_metadata"
	DerivationSQLParsing      DerivationMethod = "sql_parsing"
	DerivationDataFlowAnalysis DerivationMethod = "data_flow_analysis"
	DerivationInference       DerivationMethod = "inference"
)

// ConfidenceLevel is the closed set of confidence tiers attached to a
// derived edge.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

const sqlStatementTruncateLen = 500

// SourceContext is the traceability envelope every parsed node and edge
// carries, linking it back to the source artifact it was derived from.
type SourceContext struct {
	SourceFilePath  string           `json:"source_file_path"`
	SourceFileType  string           `json:"source_file_type,omitempty"`
	Technology      string           `json:"technology"`
	XMLPath         string           `json:"xml_path,omitempty"`
	XMLLocation     string           `json:"xml_location,omitempty"`
	LineNumber      int              `json:"line_number,omitempty"`
	ParentPackage   string           `json:"parent_package,omitempty"`
	DerivationMethod DerivationMethod `json:"derivation_method,omitempty"`
	ConfidenceLevel  ConfidenceLevel  `json:"confidence_level,omitempty"`
	ContextInfo      map[string]any   `json:"context_info,omitempty"`
}

// NewNodeTraceability builds the traceability envelope attached to a parsed
// node: the source file it came from, plus an optional XPath/line number for
// XML-derived nodes.
func NewNodeTraceability(sourceFilePath, sourceFileType, technology string, xmlPath string, lineNumber int, parentPackage string) *SourceContext {
	abs, err := filepath.Abs(sourceFilePath)
	if err != nil {
		abs = sourceFilePath
	}
	return &SourceContext{
		SourceFilePath: abs,
		SourceFileType: sourceFileType,
		Technology:     technology,
		XMLPath:        xmlPath,
		LineNumber:     lineNumber,
		ParentPackage:  parentPackage,
	}
}

// NewEdgeTraceability builds the traceability envelope attached to a derived
// edge: which file and derivation method produced it, at what confidence.
func NewEdgeTraceability(sourceFilePath string, technology string, derivation DerivationMethod, xmlLocation string, contextInfo map[string]any, confidence ConfidenceLevel) *SourceContext {
	abs, err := filepath.Abs(sourceFilePath)
	if err != nil {
		abs = sourceFilePath
	}
	if confidence == "" {
		confidence = ConfidenceHigh
	}
	return &SourceContext{
		SourceFilePath:   abs,
		Technology:       technology,
		DerivationMethod: derivation,
		XMLLocation:      xmlLocation,
		ContextInfo:      contextInfo,
		ConfidenceLevel:  confidence,
	}
}

// NewSQLDerivationContext builds the ContextInfo payload for a
// sql_parsing-derived edge: the SQL text (truncated to 500 chars for
// storage), its full length, and which SSIS/Informatica component and
// property it came from.
func NewSQLDerivationContext(sqlStatement, componentType, propertyName string) map[string]any {
	truncated := sqlStatement
	if len(truncated) > sqlStatementTruncateLen {
		truncated = truncated[:sqlStatementTruncateLen]
	}
	ctx := map[string]any{
		"sql_statement":        truncated,
		"sql_statement_length": len(sqlStatement),
	}
	if componentType != "" {
		ctx["component_type"] = componentType
	}
	if propertyName != "" {
		ctx["property_name"] = propertyName
	}
	return ctx
}

// NewDataFlowDerivationContext builds the ContextInfo payload for a
// data_flow_analysis-derived edge: which data-flow component instance
// produced it and, optionally, its input/output names and transformation
// details.
func NewDataFlowDerivationContext(componentType, componentName, inputName, outputName string, transformationDetails map[string]any) map[string]any {
	ctx := map[string]any{
		"component_type": componentType,
		"component_name": componentName,
	}
	if inputName != "" {
		ctx["input_name"] = inputName
	}
	if outputName != "" {
		ctx["output_name"] = outputName
	}
	if transformationDetails != nil {
		ctx["transformation_details"] = transformationDetails
	}
	return ctx
}

// NewXMLDerivationContext builds the ContextInfo payload for an
// xml_metadata-derived edge: the XML element, and optionally the attribute
// or property that established the relationship.
func NewXMLDerivationContext(xmlElementName, xmlAttribute, xmlProperty string) map[string]any {
	ctx := map[string]any{
		"xml_element_name": xmlElementName,
	}
	if xmlAttribute != "" {
		ctx["xml_attribute"] = xmlAttribute
	}
	if xmlProperty != "" {
		ctx["xml_property"] = xmlProperty
	}
	return ctx
}

// NodeTraceabilityReport is the result of validating a node's traceability
// envelope.
type NodeTraceabilityReport struct {
	HasSourceFilePath bool
	HasSourceFileType bool
	HasTechnology     bool
	IsValidFilePath   bool
}

// ValidateNodeTraceability reports which traceability fields are present on
// a node.
func ValidateNodeTraceability(n *Node) NodeTraceabilityReport {
	ctx := n.Context
	if ctx == nil {
		return NodeTraceabilityReport{}
	}
	return NodeTraceabilityReport{
		HasSourceFilePath: ctx.SourceFilePath != "",
		HasSourceFileType: ctx.SourceFileType != "",
		HasTechnology:     ctx.Technology != "",
		IsValidFilePath:   ctx.SourceFilePath != "",
	}
}

// EdgeTraceabilityReport is the result of validating an edge's traceability
// envelope.
type EdgeTraceabilityReport struct {
	HasSourceFilePath    bool
	HasDerivationMethod  bool
	HasConfidenceLevel   bool
	HasTechnology        bool
	IsValidDerivation    bool
}

// ValidateEdgeTraceability reports which traceability fields are present on
// an edge, including whether its derivation method is one of the closed set.
func ValidateEdgeTraceability(e *Edge) EdgeTraceabilityReport {
	ctx := e.Context
	if ctx == nil {
		return EdgeTraceabilityReport{}
	}
	valid := ctx.DerivationMethod == DerivationXMLMetadata ||
		ctx.DerivationMethod == DerivationSQLParsing ||
		ctx.DerivationMethod == DerivationDataFlowAnalysis ||
		ctx.DerivationMethod == DerivationInference
	return EdgeTraceabilityReport{
		HasSourceFilePath:   ctx.SourceFilePath != "",
		HasDerivationMethod: ctx.DerivationMethod != "",
		HasConfidenceLevel:  ctx.ConfidenceLevel != "",
		HasTechnology:       ctx.Technology != "",
		IsValidDerivation:   valid,
	}
}

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

package typemap

import (
	"fmt"
	"strconv"
	"strings"
)

// Technology identifies which parser produced the native type being
// enriched, selecting the native→canonical table to use.
type Technology string

const (
	TechnologySSIS        Technology = "SSIS"
	TechnologyInformatica Technology = "Informatica"
)

// platformTemplates holds the target-DDL template string per canonical type
// per platform, with {length}/{precision}/{scale} placeholders. Built from
// the union of the SSIS mapper's azure_synapse-inclusive table and the
// Informatica mapper's redshift/databricks-inclusive table, extended so
// every canonical type used by either technology resolves on every platform
// in AllTargetPlatforms.
var platformTemplates = map[CanonicalType]map[TargetPlatform]string{
	CanonicalInteger: {
		PlatformSQLServer: "int", PlatformPostgreSQL: "integer", PlatformMySQL: "int",
		PlatformOracle: "number(10)", PlatformSnowflake: "number(38,0)", PlatformBigQuery: "int64",
		PlatformRedshift: "integer", PlatformDatabricks: "int", PlatformAzureSynapse: "int",
	},
	CanonicalBigInt: {
		PlatformSQLServer: "bigint", PlatformPostgreSQL: "bigint", PlatformMySQL: "bigint",
		PlatformOracle: "number(19)", PlatformSnowflake: "number(38,0)", PlatformBigQuery: "int64",
		PlatformRedshift: "bigint", PlatformDatabricks: "bigint", PlatformAzureSynapse: "bigint",
	},
	CanonicalSmallInt: {
		PlatformSQLServer: "smallint", PlatformPostgreSQL: "smallint", PlatformMySQL: "smallint",
		PlatformOracle: "number(5)", PlatformSnowflake: "number(38,0)", PlatformBigQuery: "int64",
		PlatformRedshift: "smallint", PlatformDatabricks: "smallint", PlatformAzureSynapse: "smallint",
	},
	CanonicalTinyInt: {
		PlatformSQLServer: "tinyint", PlatformPostgreSQL: "smallint", PlatformMySQL: "tinyint",
		PlatformOracle: "number(3)", PlatformSnowflake: "number(38,0)", PlatformBigQuery: "int64",
		PlatformRedshift: "smallint", PlatformDatabricks: "tinyint", PlatformAzureSynapse: "tinyint",
	},
	CanonicalDecimal: {
		PlatformSQLServer: "decimal({precision},{scale})", PlatformPostgreSQL: "decimal({precision},{scale})",
		PlatformMySQL: "decimal({precision},{scale})", PlatformOracle: "number({precision},{scale})",
		PlatformSnowflake: "number({precision},{scale})", PlatformBigQuery: "numeric({precision},{scale})",
		PlatformRedshift: "decimal({precision},{scale})", PlatformDatabricks: "decimal({precision},{scale})",
		PlatformAzureSynapse: "decimal({precision},{scale})",
	},
	CanonicalNumeric: {
		PlatformSQLServer: "numeric({precision},{scale})", PlatformPostgreSQL: "numeric({precision},{scale})",
		PlatformMySQL: "decimal({precision},{scale})", PlatformOracle: "number({precision},{scale})",
		PlatformSnowflake: "number({precision},{scale})", PlatformBigQuery: "numeric({precision},{scale})",
		PlatformRedshift: "numeric({precision},{scale})", PlatformDatabricks: "decimal({precision},{scale})",
		PlatformAzureSynapse: "numeric({precision},{scale})",
	},
	CanonicalFloat: {
		PlatformSQLServer: "float", PlatformPostgreSQL: "double precision", PlatformMySQL: "double",
		PlatformOracle: "binary_double", PlatformSnowflake: "float", PlatformBigQuery: "float64",
		PlatformRedshift: "double precision", PlatformDatabricks: "double", PlatformAzureSynapse: "float",
	},
	CanonicalReal: {
		PlatformSQLServer: "real", PlatformPostgreSQL: "real", PlatformMySQL: "float",
		PlatformOracle: "binary_float", PlatformSnowflake: "float", PlatformBigQuery: "float64",
		PlatformRedshift: "real", PlatformDatabricks: "float", PlatformAzureSynapse: "real",
	},
	CanonicalMoney: {
		PlatformSQLServer: "money", PlatformPostgreSQL: "money", PlatformMySQL: "decimal(19,4)",
		PlatformOracle: "number(19,4)", PlatformSnowflake: "number(19,4)", PlatformBigQuery: "numeric(19,4)",
		PlatformRedshift: "decimal(19,4)", PlatformDatabricks: "decimal(19,4)", PlatformAzureSynapse: "money",
	},
	CanonicalVarchar: {
		PlatformSQLServer: "varchar({length})", PlatformPostgreSQL: "varchar({length})", PlatformMySQL: "varchar({length})",
		PlatformOracle: "varchar2({length})", PlatformSnowflake: "varchar({length})", PlatformBigQuery: "string",
		PlatformRedshift: "varchar({length})", PlatformDatabricks: "string", PlatformAzureSynapse: "varchar({length})",
	},
	CanonicalNVarchar: {
		PlatformSQLServer: "nvarchar({length})", PlatformPostgreSQL: "varchar({length})", PlatformMySQL: "varchar({length})",
		PlatformOracle: "nvarchar2({length})", PlatformSnowflake: "varchar({length})", PlatformBigQuery: "string",
		PlatformRedshift: "varchar({length})", PlatformDatabricks: "string", PlatformAzureSynapse: "nvarchar({length})",
	},
	CanonicalChar: {
		PlatformSQLServer: "char({length})", PlatformPostgreSQL: "char({length})", PlatformMySQL: "char({length})",
		PlatformOracle: "char({length})", PlatformSnowflake: "char({length})", PlatformBigQuery: "string",
		PlatformRedshift: "char({length})", PlatformDatabricks: "string", PlatformAzureSynapse: "char({length})",
	},
	CanonicalNChar: {
		PlatformSQLServer: "nchar({length})", PlatformPostgreSQL: "char({length})", PlatformMySQL: "char({length})",
		PlatformOracle: "nchar({length})", PlatformSnowflake: "char({length})", PlatformBigQuery: "string",
		PlatformRedshift: "char({length})", PlatformDatabricks: "string", PlatformAzureSynapse: "nchar({length})",
	},
	CanonicalText: {
		PlatformSQLServer: "text", PlatformPostgreSQL: "text", PlatformMySQL: "text",
		PlatformOracle: "clob", PlatformSnowflake: "varchar", PlatformBigQuery: "string",
		PlatformRedshift: "varchar(65535)", PlatformDatabricks: "string", PlatformAzureSynapse: "text",
	},
	CanonicalNText: {
		PlatformSQLServer: "ntext", PlatformPostgreSQL: "text", PlatformMySQL: "text",
		PlatformOracle: "nclob", PlatformSnowflake: "varchar", PlatformBigQuery: "string",
		PlatformRedshift: "varchar(65535)", PlatformDatabricks: "string", PlatformAzureSynapse: "ntext",
	},
	CanonicalDateTime: {
		PlatformSQLServer: "datetime2", PlatformPostgreSQL: "timestamp", PlatformMySQL: "datetime",
		PlatformOracle: "timestamp", PlatformSnowflake: "timestamp", PlatformBigQuery: "datetime",
		PlatformRedshift: "timestamp", PlatformDatabricks: "timestamp", PlatformAzureSynapse: "datetime2",
	},
	CanonicalDate: {
		PlatformSQLServer: "date", PlatformPostgreSQL: "date", PlatformMySQL: "date",
		PlatformOracle: "date", PlatformSnowflake: "date", PlatformBigQuery: "date",
		PlatformRedshift: "date", PlatformDatabricks: "date", PlatformAzureSynapse: "date",
	},
	CanonicalTime: {
		PlatformSQLServer: "time", PlatformPostgreSQL: "time", PlatformMySQL: "time",
		PlatformOracle: "timestamp", PlatformSnowflake: "time", PlatformBigQuery: "time",
		PlatformRedshift: "time", PlatformDatabricks: "string", PlatformAzureSynapse: "time",
	},
	CanonicalTimestamp: {
		PlatformSQLServer: "datetime2", PlatformPostgreSQL: "timestamp", PlatformMySQL: "timestamp",
		PlatformOracle: "timestamp", PlatformSnowflake: "timestamp", PlatformBigQuery: "timestamp",
		PlatformRedshift: "timestamp", PlatformDatabricks: "timestamp", PlatformAzureSynapse: "datetime2",
	},
	CanonicalBinary: {
		PlatformSQLServer: "binary({length})", PlatformPostgreSQL: "bytea", PlatformMySQL: "binary({length})",
		PlatformOracle: "raw({length})", PlatformSnowflake: "binary", PlatformBigQuery: "bytes",
		PlatformRedshift: "varbyte", PlatformDatabricks: "binary", PlatformAzureSynapse: "binary({length})",
	},
	CanonicalVarBinary: {
		PlatformSQLServer: "varbinary({length})", PlatformPostgreSQL: "bytea", PlatformMySQL: "varbinary({length})",
		PlatformOracle: "blob", PlatformSnowflake: "binary", PlatformBigQuery: "bytes",
		PlatformRedshift: "varbyte", PlatformDatabricks: "binary", PlatformAzureSynapse: "varbinary({length})",
	},
	CanonicalImage: {
		PlatformSQLServer: "image", PlatformPostgreSQL: "bytea", PlatformMySQL: "blob",
		PlatformOracle: "blob", PlatformSnowflake: "binary", PlatformBigQuery: "bytes",
		PlatformRedshift: "varbyte", PlatformDatabricks: "binary", PlatformAzureSynapse: "image",
	},
	CanonicalBoolean: {
		PlatformSQLServer: "bit", PlatformPostgreSQL: "boolean", PlatformMySQL: "boolean",
		PlatformOracle: "number(1)", PlatformSnowflake: "boolean", PlatformBigQuery: "bool",
		PlatformRedshift: "boolean", PlatformDatabricks: "boolean", PlatformAzureSynapse: "bit",
	},
	CanonicalUUID: {
		PlatformSQLServer: "uniqueidentifier", PlatformPostgreSQL: "uuid", PlatformMySQL: "char(36)",
		PlatformOracle: "char(36)", PlatformSnowflake: "varchar(36)", PlatformBigQuery: "string",
		PlatformRedshift: "char(36)", PlatformDatabricks: "string", PlatformAzureSynapse: "uniqueidentifier",
	},
	CanonicalJSON: {
		PlatformSQLServer: "nvarchar(max)", PlatformPostgreSQL: "jsonb", PlatformMySQL: "json",
		PlatformOracle: "clob", PlatformSnowflake: "variant", PlatformBigQuery: "json",
		PlatformRedshift: "super", PlatformDatabricks: "string", PlatformAzureSynapse: "nvarchar(max)",
	},
	CanonicalXML: {
		PlatformSQLServer: "xml", PlatformPostgreSQL: "xml", PlatformMySQL: "text",
		PlatformOracle: "xmltype", PlatformSnowflake: "varchar", PlatformBigQuery: "string",
		PlatformRedshift: "varchar(65535)", PlatformDatabricks: "string", PlatformAzureSynapse: "xml",
	},
}

// Enrichment is the full set of type-mapping properties attached to a
// parsed column, matching both source mappers' enrich_column_properties
// return shape.
type Enrichment struct {
	NativeType          string
	Technology          Technology
	CanonicalType       CanonicalType
	TargetTypes         map[string]string
	TypePrecision       *int
	TypeScale           *int
	TypeLength          *int
	Nullable            bool
	ConversionConfidence float64
	PotentialIssues     []string
	TypeCategory        string
	SupportsIndexing    bool
	SupportsSorting     bool
}

func atoiOrNil(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// Enrich maps a native column type to its canonical type and every
// requested target platform's DDL, folding in conversion-confidence
// scoring and potential-issue flags. targets defaults to
// DefaultTargetPlatforms when nil.
func Enrich(tech Technology, nativeType, length, precision, scale string, nullable bool, targets []TargetPlatform) Enrichment {
	var canonical CanonicalType
	switch tech {
	case TechnologySSIS:
		canonical = CanonicalForSSIS(nativeType)
	case TechnologyInformatica:
		canonical = CanonicalForInformatica(nativeType)
	default:
		canonical = CanonicalUnknown
	}

	if targets == nil {
		targets = DefaultTargetPlatforms
	}

	lengthInt := atoiOrNil(length)
	precisionInt := atoiOrNil(precision)
	scaleInt := atoiOrNil(scale)

	targetTypes := make(map[string]string, len(targets))
	confidence := 1.0
	var issues []string

	for _, platform := range targets {
		rendered := renderTemplate(canonical, platform, lengthInt, precisionInt, scaleInt)
		targetTypes[string(platform)] = rendered
		if rendered == "unknown" {
			issues = append(issues, fmt.Sprintf("No mapping defined for %s", platform))
			if confidence > 0.5 {
				confidence = 0.5
			}
		}
	}

	if canonical == CanonicalUnknown {
		issues = append(issues, fmt.Sprintf("Unknown %s native type: %s", tech, nativeType))
		confidence = 0.3
	}

	if lengthInt != nil && *lengthInt > 8000 {
		issues = append(issues, "Large column length may require special handling")
		if confidence > 0.8 {
			confidence = 0.8
		}
	}

	return Enrichment{
		NativeType:           nativeType,
		Technology:           tech,
		CanonicalType:        canonical,
		TargetTypes:          targetTypes,
		TypePrecision:        precisionInt,
		TypeScale:            scaleInt,
		TypeLength:           lengthInt,
		Nullable:             nullable,
		ConversionConfidence: confidence,
		PotentialIssues:      issues,
		TypeCategory:         TypeCategory(canonical),
		SupportsIndexing:     SupportsIndexing(canonical),
		SupportsSorting:      SupportsSorting(canonical),
	}
}

func renderTemplate(canonical CanonicalType, platform TargetPlatform, length, precision, scale *int) string {
	platformTypes, ok := platformTemplates[canonical]
	if !ok {
		return "unknown"
	}
	template, ok := platformTypes[platform]
	if !ok {
		return "unknown"
	}
	if strings.Contains(template, "{length}") && length != nil {
		template = strings.ReplaceAll(template, "{length}", strconv.Itoa(*length))
	}
	if strings.Contains(template, "{precision}") && precision != nil {
		template = strings.ReplaceAll(template, "{precision}", strconv.Itoa(*precision))
	}
	if strings.Contains(template, "{scale}") && scale != nil {
		template = strings.ReplaceAll(template, "{scale}", strconv.Itoa(*scale))
	}
	return template
}

// ConversionReport aggregates risk counts and flagged high-risk conversions
// across a batch of observed conversions, matching the original
// analyze_type_conversions supplemented feature.
type ConversionReport struct {
	TotalConversions int
	RiskCounts       map[ConversionRisk]int
	RiskSummary      []RiskSummaryEntry
	CommonPatterns   map[string]int
	Recommendations  []string
}

// RiskSummaryEntry names one high/unsafe-risk conversion found during
// analysis.
type RiskSummaryEntry struct {
	Source         CanonicalType
	Target         CanonicalType
	Risk           ConversionRisk
	Transformation string
}

// ConversionPair names a single observed source→target canonical-type
// conversion, with an optional label for the transformation it came from.
type ConversionPair struct {
	Source         CanonicalType
	Target         CanonicalType
	Transformation string
}

// AnalyzeConversions scans a batch of observed conversions and reports risk
// counts, flagged high/unsafe conversions, and common source→target
// patterns.
func AnalyzeConversions(conversions []ConversionPair) ConversionReport {
	report := ConversionReport{
		TotalConversions: len(conversions),
		RiskCounts: map[ConversionRisk]int{
			RiskNone: 0, RiskLow: 0, RiskMedium: 0, RiskHigh: 0, RiskUnsafe: 0,
		},
		CommonPatterns: make(map[string]int),
	}

	for _, c := range conversions {
		risk := ConversionRiskOf(c.Source, c.Target)
		report.RiskCounts[risk]++

		if risk == RiskHigh || risk == RiskUnsafe {
			report.RiskSummary = append(report.RiskSummary, RiskSummaryEntry{
				Source: c.Source, Target: c.Target, Risk: risk, Transformation: c.Transformation,
			})
		}

		pattern := fmt.Sprintf("%s->%s", c.Source, c.Target)
		report.CommonPatterns[pattern]++
	}

	if report.RiskCounts[RiskHigh] > 0 {
		report.Recommendations = append(report.Recommendations, "Review high-risk type conversions for potential data loss")
	}
	if report.RiskCounts[RiskUnsafe] > 0 {
		report.Recommendations = append(report.Recommendations, "Validate unsafe type conversions before deployment")
	}
	if report.TotalConversions > 50 {
		report.Recommendations = append(report.Recommendations, "Consider implementing automated type validation testing")
	}

	return report
}

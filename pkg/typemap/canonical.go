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

// Package typemap maps SSIS and Informatica native column types onto a
// shared canonical type and, from there, onto each supported target
// platform's DDL syntax.
package typemap

// CanonicalType is the cross-technology, cross-platform type every native
// column type is first normalized to.
type CanonicalType string

const (
	CanonicalInteger   CanonicalType = "INTEGER"
	CanonicalBigInt    CanonicalType = "BIGINT"
	CanonicalSmallInt  CanonicalType = "SMALLINT"
	CanonicalTinyInt   CanonicalType = "TINYINT"
	CanonicalDecimal   CanonicalType = "DECIMAL"
	CanonicalNumeric   CanonicalType = "NUMERIC"
	CanonicalFloat     CanonicalType = "FLOAT"
	CanonicalReal      CanonicalType = "REAL"
	CanonicalMoney     CanonicalType = "MONEY"
	CanonicalString    CanonicalType = "STRING"
	CanonicalVarchar   CanonicalType = "VARCHAR"
	CanonicalNVarchar  CanonicalType = "NVARCHAR"
	CanonicalChar      CanonicalType = "CHAR"
	CanonicalNChar     CanonicalType = "NCHAR"
	CanonicalText      CanonicalType = "TEXT"
	CanonicalNText     CanonicalType = "NTEXT"
	CanonicalDateTime  CanonicalType = "DATETIME"
	CanonicalDate      CanonicalType = "DATE"
	CanonicalTime      CanonicalType = "TIME"
	CanonicalTimestamp CanonicalType = "TIMESTAMP"
	CanonicalBinary    CanonicalType = "BINARY"
	CanonicalVarBinary CanonicalType = "VARBINARY"
	CanonicalImage     CanonicalType = "IMAGE"
	CanonicalBoolean   CanonicalType = "BOOLEAN"
	CanonicalUUID      CanonicalType = "UUID"
	CanonicalJSON      CanonicalType = "JSON"
	CanonicalXML       CanonicalType = "XML"
	CanonicalUnknown   CanonicalType = "UNKNOWN"
)

// ConversionRisk is the fixed 5-level risk table attached to a conversion
// between two canonical types.
type ConversionRisk string

const (
	RiskNone   ConversionRisk = "none"
	RiskLow    ConversionRisk = "low"
	RiskMedium ConversionRisk = "medium"
	RiskHigh   ConversionRisk = "high"
	RiskUnsafe ConversionRisk = "unsafe"
)

// TargetPlatform is the closed set of DDL dialects a canonical type can be
// projected onto.
type TargetPlatform string

const (
	PlatformSQLServer    TargetPlatform = "sql_server"
	PlatformPostgreSQL   TargetPlatform = "postgresql"
	PlatformMySQL        TargetPlatform = "mysql"
	PlatformOracle       TargetPlatform = "oracle"
	PlatformSnowflake    TargetPlatform = "snowflake"
	PlatformBigQuery     TargetPlatform = "bigquery"
	PlatformRedshift     TargetPlatform = "redshift"
	PlatformDatabricks   TargetPlatform = "databricks"
	PlatformAzureSynapse TargetPlatform = "azure_synapse"
)

// DefaultTargetPlatforms mirrors the mappers' default platform list when the
// caller does not name one explicitly.
var DefaultTargetPlatforms = []TargetPlatform{
	PlatformSQLServer, PlatformPostgreSQL, PlatformMySQL, PlatformOracle,
}

// AllTargetPlatforms lists every platform the engine can project onto.
var AllTargetPlatforms = []TargetPlatform{
	PlatformSQLServer, PlatformPostgreSQL, PlatformMySQL, PlatformOracle,
	PlatformSnowflake, PlatformBigQuery, PlatformRedshift, PlatformDatabricks,
	PlatformAzureSynapse,
}

var stringTypes = map[CanonicalType]bool{
	CanonicalString: true, CanonicalVarchar: true, CanonicalNVarchar: true,
	CanonicalChar: true, CanonicalNChar: true, CanonicalText: true, CanonicalNText: true,
}

var numericTypes = map[CanonicalType]bool{
	CanonicalInteger: true, CanonicalBigInt: true, CanonicalSmallInt: true,
	CanonicalTinyInt: true, CanonicalDecimal: true, CanonicalNumeric: true,
	CanonicalFloat: true, CanonicalReal: true, CanonicalMoney: true,
}

var datetimeTypes = map[CanonicalType]bool{
	CanonicalDateTime: true, CanonicalDate: true, CanonicalTime: true, CanonicalTimestamp: true,
}

var binaryTypes = map[CanonicalType]bool{
	CanonicalBinary: true, CanonicalVarBinary: true, CanonicalImage: true,
}

var nonIndexable = map[CanonicalType]bool{
	CanonicalText: true, CanonicalNText: true, CanonicalImage: true,
	CanonicalJSON: true, CanonicalXML: true,
}

var nonSortable = map[CanonicalType]bool{
	CanonicalImage: true, CanonicalJSON: true, CanonicalXML: true,
}

// TypeCategory buckets a canonical type into a broad family, matching the
// original parsers' "numeric"/"string"/"datetime"/"binary"/"boolean"/"special"
// categorization.
func TypeCategory(t CanonicalType) string {
	switch {
	case numericTypes[t]:
		return "numeric"
	case stringTypes[t]:
		return "string"
	case datetimeTypes[t]:
		return "datetime"
	case binaryTypes[t]:
		return "binary"
	case t == CanonicalBoolean:
		return "boolean"
	default:
		return "special"
	}
}

// SupportsIndexing reports whether columns of this canonical type can
// reasonably be indexed.
func SupportsIndexing(t CanonicalType) bool { return !nonIndexable[t] }

// SupportsSorting reports whether columns of this canonical type can
// reasonably be sorted.
func SupportsSorting(t CanonicalType) bool { return !nonSortable[t] }

// conversionRules is the fixed risk table between canonical type pairs,
// ported directly from the SSIS mapper (the only source technology that
// defines one; Informatica conversions fall back to the same table since
// the risk is a property of the canonical types involved, not the source
// technology).
var conversionRules = map[[2]CanonicalType]ConversionRisk{
	{CanonicalTinyInt, CanonicalSmallInt}:  RiskLow,
	{CanonicalSmallInt, CanonicalInteger}:  RiskLow,
	{CanonicalInteger, CanonicalBigInt}:    RiskLow,
	{CanonicalReal, CanonicalFloat}:        RiskLow,
	{CanonicalChar, CanonicalVarchar}:      RiskLow,
	{CanonicalNChar, CanonicalNVarchar}:    RiskLow,
	{CanonicalDate, CanonicalDateTime}:     RiskLow,
	{CanonicalTime, CanonicalDateTime}:     RiskLow,

	{CanonicalBigInt, CanonicalInteger}:    RiskMedium,
	{CanonicalFloat, CanonicalReal}:        RiskMedium,
	{CanonicalDecimal, CanonicalInteger}:   RiskMedium,
	{CanonicalDateTime, CanonicalDate}:     RiskMedium,
	{CanonicalNVarchar, CanonicalVarchar}:  RiskMedium,

	{CanonicalVarchar, CanonicalInteger}:   RiskHigh,
	{CanonicalNVarchar, CanonicalInteger}:  RiskHigh,
	{CanonicalDateTime, CanonicalTime}:     RiskHigh,
}

// ConversionRiskOf reports the risk of converting source into target. Equal
// types are always RiskNone; an unlisted pair defaults to RiskUnsafe.
func ConversionRiskOf(source, target CanonicalType) ConversionRisk {
	if source == target {
		return RiskNone
	}
	if risk, ok := conversionRules[[2]CanonicalType{source, target}]; ok {
		return risk
	}
	return RiskUnsafe
}

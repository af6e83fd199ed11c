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

import "strings"

// informaticaToCanonical maps Informatica's port/field native type names
// (lowercase, as they appear in PowerCenter mapping XML) to the shared
// canonical type set.
var informaticaToCanonical = map[string]CanonicalType{
	"string": CanonicalVarchar, "varchar": CanonicalVarchar, "varchar2": CanonicalVarchar,
	"char": CanonicalChar,
	"nstring": CanonicalNVarchar, "nvarchar": CanonicalNVarchar,
	"nchar": CanonicalNChar,
	"text":  CanonicalText,
	"ntext": CanonicalNText,

	"decimal": CanonicalDecimal,
	"numeric": CanonicalNumeric,
	"number":  CanonicalDecimal,
	"integer": CanonicalInteger, "int": CanonicalInteger,
	"bigint":   CanonicalBigInt,
	"smallint": CanonicalSmallInt,
	"tinyint":  CanonicalTinyInt,
	"float":    CanonicalFloat, "double": CanonicalFloat,
	"real": CanonicalReal,

	"date/time": CanonicalDateTime, "datetime": CanonicalDateTime,
	"date":      CanonicalDate,
	"time":      CanonicalTime,
	"timestamp": CanonicalTimestamp,

	"binary":    CanonicalBinary,
	"varbinary": CanonicalVarBinary,
}

// CanonicalForInformatica normalizes an Informatica native type string to
// its canonical type. Oracle-style "number(p,s)" declarations are first
// collapsed to the generic "number(p,s)" bucket, matching the original
// mapper's special-case handling. Unrecognized values map to
// CanonicalUnknown rather than failing.
func CanonicalForInformatica(nativeType string) CanonicalType {
	normalized := strings.ToLower(strings.TrimSpace(nativeType))
	if strings.HasPrefix(normalized, "number") && strings.Contains(normalized, "(") {
		return CanonicalDecimal
	}
	if c, ok := informaticaToCanonical[normalized]; ok {
		return c
	}
	return CanonicalUnknown
}

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

// ssisToCanonical maps SSIS's DT_-prefixed buffer types (and the short
// forms used in connection-manager/column metadata) to the shared canonical
// type set.
var ssisToCanonical = map[string]CanonicalType{
	"DT_I1": CanonicalTinyInt, "i1": CanonicalTinyInt,
	"DT_I2": CanonicalSmallInt, "i2": CanonicalSmallInt,
	"DT_I4": CanonicalInteger, "i4": CanonicalInteger,
	"DT_I8": CanonicalBigInt, "i8": CanonicalBigInt,
	"DT_UI1": CanonicalTinyInt, "ui1": CanonicalTinyInt,
	"DT_UI2": CanonicalSmallInt, "ui2": CanonicalSmallInt,
	"DT_UI4": CanonicalInteger, "ui4": CanonicalInteger,
	"DT_UI8": CanonicalBigInt, "ui8": CanonicalBigInt,
	"DT_R4": CanonicalReal, "r4": CanonicalReal,
	"DT_R8": CanonicalFloat, "r8": CanonicalFloat,
	"DT_DECIMAL": CanonicalDecimal, "decimal": CanonicalDecimal,
	"DT_NUMERIC": CanonicalNumeric, "numeric": CanonicalNumeric,
	"DT_CY": CanonicalMoney, "cy": CanonicalMoney,

	"DT_STR": CanonicalVarchar, "str": CanonicalVarchar,
	"DT_WSTR": CanonicalNVarchar, "wstr": CanonicalNVarchar,
	"DT_TEXT": CanonicalText, "text": CanonicalText,
	"DT_NTEXT": CanonicalNText, "ntext": CanonicalNText,

	"DT_DBTIMESTAMP": CanonicalDateTime, "dbtimestamp": CanonicalDateTime,
	"DT_DBTIMESTAMP2": CanonicalDateTime, "dbtimestamp2": CanonicalDateTime,
	"DT_DBDATE": CanonicalDate, "dbdate": CanonicalDate,
	"DT_DBTIME": CanonicalTime, "dbtime": CanonicalTime,
	"DT_DBTIME2": CanonicalTime, "dbtime2": CanonicalTime,
	"DT_DBTIMESTAMPOFFSET": CanonicalTimestamp, "dbtimestampoffset": CanonicalTimestamp,

	"DT_BYTES": CanonicalVarBinary, "bytes": CanonicalVarBinary,
	"DT_IMAGE": CanonicalImage, "image": CanonicalImage,

	"DT_BOOL": CanonicalBoolean, "bool": CanonicalBoolean,

	"DT_GUID": CanonicalUUID, "guid": CanonicalUUID,
}

// CanonicalForSSIS normalizes an SSIS native type string (DT_I4, i4, ...) to
// its canonical type. Unrecognized values map to CanonicalUnknown rather
// than failing, matching the original mapper's fallback behavior.
func CanonicalForSSIS(nativeType string) CanonicalType {
	if c, ok := ssisToCanonical[nativeType]; ok {
		return c
	}
	return CanonicalUnknown
}

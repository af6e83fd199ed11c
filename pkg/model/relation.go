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

import mzerrors "github.com/metazcode/mzc/internal/errors"

// Relation is the closed enumeration of edge relations in the canonical graph.
type Relation string

const (
	RelationContains       Relation = "contains"
	RelationReadsFrom      Relation = "reads_from"
	RelationWritesTo       Relation = "writes_to"
	RelationUsesConnection Relation = "uses_connection"
	RelationUsesParameter  Relation = "uses_parameter"
	RelationUsesVariable   Relation = "uses_variable"
	RelationSummarizes     Relation = "summarizes"
	RelationExecutes       Relation = "executes"
	RelationDerivedFrom    Relation = "derived_from"
	RelationTransforms     Relation = "transforms"
	RelationPartOf         Relation = "part_of"
	RelationReferences     Relation = "references"
	RelationConfigures     Relation = "configures"
	RelationPrecedes       Relation = "precedes"
	RelationDependsOn      Relation = "depends_on"
	RelationSharesResource Relation = "shares_resource"
)

var validRelations = map[Relation]struct{}{
	RelationContains: {}, RelationReadsFrom: {}, RelationWritesTo: {},
	RelationUsesConnection: {}, RelationUsesParameter: {}, RelationUsesVariable: {},
	RelationSummarizes: {}, RelationExecutes: {}, RelationDerivedFrom: {},
	RelationTransforms: {}, RelationPartOf: {}, RelationReferences: {},
	RelationConfigures: {}, RelationPrecedes: {}, RelationDependsOn: {},
	RelationSharesResource: {},
}

// ParseRelation validates a raw string against the closed relation set.
func ParseRelation(s string) (Relation, error) {
	r := Relation(s)
	if _, ok := validRelations[r]; !ok {
		return "", mzerrors.NewUnknownKind("edge relation", s)
	}
	return r, nil
}

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

// Package model defines the canonical node/edge kinds, relations, and the
// traceability envelope every parsed entity carries.
package model

import mzerrors "github.com/metazcode/mzc/internal/errors"

// Kind is the closed enumeration of node kinds in the canonical graph.
type Kind string

const (
	KindDirectory        Kind = "directory"
	KindFile             Kind = "file"
	KindPipeline         Kind = "pipeline"
	KindOperation        Kind = "operation"
	KindDataAsset        Kind = "data_asset"
	KindConnection       Kind = "connection"
	KindParameter        Kind = "parameter"
	KindVariable         Kind = "variable"
	KindSchema           Kind = "schema"
	KindTable            Kind = "table"
	KindColumn           Kind = "column"
	KindEntity           Kind = "entity"
	KindTransformation   Kind = "transformation"
	KindOperationSummary Kind = "operation_summary"
	KindPipelineSummary  Kind = "pipeline_summary"
	KindMaterializedView Kind = "materialized_view"
	KindGraphMetadata    Kind = "graph_metadata"
)

var validKinds = map[Kind]struct{}{
	KindDirectory: {}, KindFile: {}, KindPipeline: {}, KindOperation: {},
	KindDataAsset: {}, KindConnection: {}, KindParameter: {}, KindVariable: {},
	KindSchema: {}, KindTable: {}, KindColumn: {}, KindEntity: {},
	KindTransformation: {}, KindOperationSummary: {}, KindPipelineSummary: {},
	KindMaterializedView: {}, KindGraphMetadata: {},
}

// ParseKind validates a raw string against the closed kind set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := validKinds[k]; !ok {
		return "", mzerrors.NewUnknownKind("node kind", s)
	}
	return k, nil
}

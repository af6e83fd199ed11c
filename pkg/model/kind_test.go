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

import (
	"testing"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKindValid(t *testing.T) {
	valid := []Kind{
		KindDirectory, KindFile, KindPipeline, KindOperation, KindDataAsset,
		KindConnection, KindParameter, KindVariable, KindSchema, KindTable,
		KindColumn, KindEntity, KindTransformation, KindOperationSummary,
		KindPipelineSummary, KindMaterializedView, KindGraphMetadata,
	}
	for _, k := range valid {
		t.Run(string(k), func(t *testing.T) {
			got, err := ParseKind(string(k))
			require.NoError(t, err)
			assert.Equal(t, k, got)
		})
	}
}

func TestParseKindUnknown(t *testing.T) {
	_, err := ParseKind("widget")
	require.Error(t, err)

	var uk *mzerrors.UnknownKind
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, "widget", uk.Value)
}

func TestParseRelationValid(t *testing.T) {
	valid := []Relation{
		RelationContains, RelationReadsFrom, RelationWritesTo,
		RelationUsesConnection, RelationUsesParameter, RelationUsesVariable,
		RelationSummarizes, RelationExecutes, RelationDerivedFrom,
		RelationTransforms, RelationPartOf, RelationReferences,
		RelationConfigures, RelationPrecedes, RelationDependsOn,
		RelationSharesResource,
	}
	for _, r := range valid {
		t.Run(string(r), func(t *testing.T) {
			got, err := ParseRelation(string(r))
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestParseRelationUnknown(t *testing.T) {
	_, err := ParseRelation("frobnicates")
	require.Error(t, err)

	var uk *mzerrors.UnknownKind
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, "frobnicates", uk.Value)
}

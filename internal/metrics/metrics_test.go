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

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordToolResultIncrementsNodesAndEdges(t *testing.T) {
	RecordToolResult("ssis-test", 0, 3, 5, nil)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.parseNodes.WithLabelValues("ssis-test")), float64(3))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.parseEdges.WithLabelValues("ssis-test")), float64(5))
}

func TestRecordToolResultErrorIncrementsErrorsOnly(t *testing.T) {
	before := testutil.ToFloat64(m.parseErrors.WithLabelValues("informatica-test"))
	beforeNodes := testutil.ToFloat64(m.parseNodes.WithLabelValues("informatica-test"))
	beforeEdges := testutil.ToFloat64(m.parseEdges.WithLabelValues("informatica-test"))
	RecordToolResult("informatica-test", 0, 9, 9, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(m.parseErrors.WithLabelValues("informatica-test")))
	assert.Equal(t, beforeNodes, testutil.ToFloat64(m.parseNodes.WithLabelValues("informatica-test")))
	assert.Equal(t, beforeEdges, testutil.ToFloat64(m.parseEdges.WithLabelValues("informatica-test")))
}

func TestRecordAnalysisRunSetsGaugesAndCountsEdges(t *testing.T) {
	before := testutil.ToFloat64(m.crossPackageEdges)
	RecordAnalysisRun(2, 1, 4, true, 10*time.Millisecond)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.sharedTables))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sharedConnections))
	assert.Equal(t, before+4, testutil.ToFloat64(m.crossPackageEdges))
}

func TestRecordIndexBuildFailureSkipsNodeGauge(t *testing.T) {
	beforeFailures := testutil.ToFloat64(m.indexFailures)
	beforeNodes := testutil.ToFloat64(m.indexNodes)
	RecordIndexBuild(0, errors.New("boom"), time.Millisecond)
	assert.Equal(t, beforeFailures+1, testutil.ToFloat64(m.indexFailures))
	assert.Equal(t, beforeNodes, testutil.ToFloat64(m.indexNodes))
}

func TestRecordSearchIncrementsQueryCounter(t *testing.T) {
	before := testutil.ToFloat64(m.searchQueries.WithLabelValues("content"))
	RecordSearch("content", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(m.searchQueries.WithLabelValues("content")))
}

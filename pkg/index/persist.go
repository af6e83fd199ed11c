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

package index

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"os"

	mzerrors "github.com/metazcode/mzc/internal/errors"
	"github.com/metazcode/mzc/pkg/model"
)

// Save writes idx's node snapshot to path, gob-encoded. BM25 documents and
// postings are not persisted — they are cheap to rebuild from tokenization,
// and persisting them would double the file size for no benefit, since
// Tokenize is deterministic and BuildFromNodes is pure. Properties maps
// inside model.Node are map[string]any with values gob cannot encode
// without registration for every concrete type ingestion ever produces, so
// the snapshot round-trips through JSON first (which every property value
// already satisfies, since ingestion only ever writes JSON-safe types) and
// gob-encodes the resulting byte slice plus the project id.
func Save(path string, idx *Index) error {
	nodesJSON, err := json.Marshal(idx.allNodes)
	if err != nil {
		return mzerrors.NewIndexBuildFailure(idx.projectID, err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(onDiskFormat{ProjectID: idx.projectID, NodesJSON: nodesJSON}); err != nil {
		return mzerrors.NewIndexBuildFailure(idx.projectID, err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return mzerrors.NewIndexBuildFailure(idx.projectID, err)
	}
	return nil
}

// onDiskFormat is the gob envelope around the JSON-encoded node list.
type onDiskFormat struct {
	ProjectID string
	NodesJSON []byte
}

// Load reads path and rebuilds an Index from its node snapshot. cfg mirrors
// Build's cfg parameter so a domain-aware index reloads with the same
// extended whitelist it was built with.
func Load(path string, cfg *Config) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, mzerrors.NewIndexBuildFailure(path, err)
	}

	var onDisk onDiskFormat
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&onDisk); err != nil {
		return nil, mzerrors.NewIndexBuildFailure(path, err)
	}

	var nodes []*model.Node
	if err := json.Unmarshal(onDisk.NodesJSON, &nodes); err != nil {
		return nil, mzerrors.NewIndexBuildFailure(path, err)
	}

	idx := BuildFromNodes(nodes, cfg)
	idx.SetProjectID(onDisk.ProjectID)
	return idx, nil
}

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

// Package bootstrap opens a project's graph backend and resolves where its
// index sidecar lives, for cmd/mzc to wire up before running ingestion,
// analysis, or search.
//
// # Workflow
//
//	client, info, err := bootstrap.OpenProject(ctx, bootstrap.ProjectConfig{
//	    ProjectID: "sales-dw",
//	    RemoteURI: "bolt://localhost:7687", // omit to use the in-memory backend
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
// # Backend selection
//
// RemoteURI empty selects graph.NewMemoryClient(); set, it dials
// graph.NewRemoteClient() and surfaces *errors.BackendUnavailable on
// failure rather than falling back silently — the orchestrator decides
// whether to degrade to memory, per §5.
//
// # Project discovery
//
//	projects, err := bootstrap.ListProjects()
//	for _, id := range projects {
//	    fmt.Println(id)
//	}
package bootstrap

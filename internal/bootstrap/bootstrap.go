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

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/metazcode/mzc/pkg/graph"
	"github.com/metazcode/mzc/pkg/typemap"
)

// ProjectConfig holds configuration for opening a project's graph backend
// and index sidecar.
type ProjectConfig struct {
	// ProjectID is the logical project identifier; it namespaces the index
	// sidecar path under DataDir.
	ProjectID string

	// DataDir is the directory the index gob/JSON sidecar is persisted
	// under. Defaults to ~/.mzc/data/<project_id>.
	DataDir string

	// RemoteURI, if set, selects graph.RemoteClient (a Neo4j-compatible
	// bolt:// endpoint). Empty selects the in-memory backend.
	RemoteURI string

	// RemoteUsername/RemotePassword authenticate RemoteURI when the server
	// does not accept an unauthenticated connection.
	RemoteUsername string
	RemotePassword string

	// RemoteDatabase selects the database name on a multi-database Neo4j
	// server. Empty uses the server's default.
	RemoteDatabase string

	// TargetPlatforms drives type-mapping enrichment during ingestion when
	// no --platforms flag is given. Empty means typemap.DefaultTargetPlatforms.
	TargetPlatforms []typemap.TargetPlatform
}

// ProjectInfo reports the outcome of opening a project.
type ProjectInfo struct {
	ProjectID string
	DataDir   string
	Backend   string // "memory" or "remote"
}

// OpenProject opens (or, for the in-memory backend, creates) the graph
// client this project's ingestion/analysis/index commands share. It is
// idempotent for the in-memory backend and safe to call repeatedly for the
// remote backend, since RemoteClient's handshake is itself idempotent.
//
// When config.RemoteURI is set and dialing it fails, OpenProject returns
// *errors.BackendUnavailable rather than silently falling back — callers
// that want the degrade-to-memory behavior described in §5 should catch
// that error themselves and construct graph.NewMemoryClient().
func OpenProject(ctx context.Context, config ProjectConfig, logger *slog.Logger) (graph.Client, *ProjectInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dataDir, err := resolveDataDir(config)
	if err != nil {
		return nil, nil, err
	}
	config.DataDir = dataDir
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	if config.RemoteURI == "" {
		logger.Info("bootstrap.project.open", "project_id", config.ProjectID, "backend", "memory")
		return graph.NewMemoryClient(), &ProjectInfo{
			ProjectID: config.ProjectID, DataDir: config.DataDir, Backend: "memory",
		}, nil
	}

	logger.Info("bootstrap.project.open", "project_id", config.ProjectID, "backend", "remote", "uri", config.RemoteURI)
	client, err := graph.NewRemoteClient(ctx, config.RemoteURI, config.RemoteUsername, config.RemotePassword, config.RemoteDatabase)
	if err != nil {
		return nil, nil, err
	}
	return client, &ProjectInfo{
		ProjectID: config.ProjectID, DataDir: config.DataDir, Backend: "remote",
	}, nil
}

// IndexSidecarPath returns the path PrepareForApplications's counterpart in
// pkg/index persists its gob+JSON snapshot under, namespaced by project id.
func IndexSidecarPath(config ProjectConfig) string {
	return filepath.Join(config.DataDir, config.ProjectID+".index")
}

// ResolveDataDir applies OpenProject's data-dir defaulting without opening a
// graph backend or creating the directory, for callers (e.g. a search
// command) that only need the index sidecar's path and have no reason to
// dial a graph backend.
func ResolveDataDir(config ProjectConfig) (string, error) {
	return resolveDataDir(config)
}

func resolveDataDir(config ProjectConfig) (string, error) {
	if config.ProjectID == "" {
		return "", fmt.Errorf("project_id is required")
	}
	if config.DataDir != "" {
		return config.DataDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".mzc", "data", config.ProjectID), nil
}

// ListProjects returns the project ids with a data directory under the
// default ~/.mzc/data root.
func ListProjects() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".mzc", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}

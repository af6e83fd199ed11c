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

package main

import (
	"context"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/metazcode/mzc/internal/bootstrap"
	"github.com/metazcode/mzc/pkg/graph"
)

// projectFlags holds the connection flags every subcommand shares: which
// project's data directory to use and which graph backend to open it with.
type projectFlags struct {
	projectID      string
	dataDir        string
	remoteURI      string
	remoteUsername string
	remotePassword string
	remoteDatabase string
	configPath     string
}

func bindProjectFlags(fs *flag.FlagSet) *projectFlags {
	pf := &projectFlags{}
	fs.StringVar(&pf.projectID, "project", "default", "Project id (namespaces the data dir and index sidecar)")
	fs.StringVar(&pf.dataDir, "data-dir", "", "Data directory (default: ~/.mzc/data/<project>)")
	fs.StringVar(&pf.remoteURI, "remote", "", "Neo4j-compatible bolt:// URI (default: in-memory backend)")
	fs.StringVar(&pf.remoteUsername, "remote-user", "", "Remote backend username")
	fs.StringVar(&pf.remotePassword, "remote-password", "", "Remote backend password")
	fs.StringVar(&pf.remoteDatabase, "remote-database", "", "Remote backend database name")
	fs.StringVar(&pf.configPath, "config", "", "Project config file (default: ./.mzc/project.yaml if present)")
	return pf
}

// resolved applies project.yaml's FileConfig as defaults underneath
// whatever flags were explicitly set, then returns the merged
// bootstrap.ProjectConfig. A missing config file is not an error.
func (pf *projectFlags) resolved() (bootstrap.ProjectConfig, error) {
	config := bootstrap.ProjectConfig{
		ProjectID:      pf.projectID,
		DataDir:        pf.dataDir,
		RemoteURI:      pf.remoteURI,
		RemoteUsername: pf.remoteUsername,
		RemotePassword: pf.remotePassword,
		RemoteDatabase: pf.remoteDatabase,
	}

	configPath := pf.configPath
	if configPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			configPath = bootstrap.DefaultConfigPath(cwd)
		}
	}
	if configPath == "" {
		return config, nil
	}

	fc, err := bootstrap.LoadConfigFile(configPath)
	if err != nil {
		return config, err
	}
	return fc.ApplyDefaults(config), nil
}

func (pf *projectFlags) open(ctx context.Context, logger *slog.Logger) (graph.Client, *bootstrap.ProjectInfo, error) {
	config, err := pf.resolved()
	if err != nil {
		return nil, nil, err
	}
	return bootstrap.OpenProject(ctx, config, logger)
}

// sidecarPath resolves the index sidecar path using info.DataDir, the data
// directory bootstrap.OpenProject actually settled on (defaulted when
// pf.dataDir was empty), not pf.dataDir itself.
func (pf *projectFlags) sidecarPath(info *bootstrap.ProjectInfo) string {
	return bootstrap.IndexSidecarPath(bootstrap.ProjectConfig{ProjectID: info.ProjectID, DataDir: info.DataDir})
}

// bootstrapProjectInfo resolves a ProjectInfo's ProjectID/DataDir the same
// way open() would, without dialing a graph backend — for commands like
// search that only read the index sidecar off disk.
func bootstrapProjectInfo(pf *projectFlags) (*bootstrap.ProjectInfo, error) {
	config, err := pf.resolved()
	if err != nil {
		return nil, err
	}
	dataDir, err := bootstrap.ResolveDataDir(config)
	if err != nil {
		return nil, err
	}
	return &bootstrap.ProjectInfo{ProjectID: config.ProjectID, DataDir: dataDir}, nil
}

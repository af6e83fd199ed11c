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
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metazcode/mzc/internal/bootstrap"
)

func TestBindProjectFlagsDefaultsToDefaultProject(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	pf := bindProjectFlags(fs)
	require.NoError(t, fs.Parse(nil))
	assert.Equal(t, "default", pf.projectID)
	assert.Equal(t, "", pf.remoteURI)
}

func TestBindProjectFlagsParsesOverrides(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	pf := bindProjectFlags(fs)
	require.NoError(t, fs.Parse([]string{"--project=sales-etl", "--remote=bolt://localhost:7687"}))
	assert.Equal(t, "sales-etl", pf.projectID)
	assert.Equal(t, "bolt://localhost:7687", pf.remoteURI)
}

func TestBootstrapProjectInfoDefaultsDataDirUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	pf := &projectFlags{projectID: "sales-etl"}
	info, err := bootstrapProjectInfo(pf)
	require.NoError(t, err)
	assert.Equal(t, "sales-etl", info.ProjectID)
	assert.Equal(t, filepath.Join(home, ".mzc", "data", "sales-etl"), info.DataDir)
}

func TestBootstrapProjectInfoRequiresProjectID(t *testing.T) {
	pf := &projectFlags{}
	_, err := bootstrapProjectInfo(pf)
	assert.Error(t, err)
}

func TestSidecarPathNamespacesByProjectID(t *testing.T) {
	pf := &projectFlags{}
	info := &bootstrap.ProjectInfo{ProjectID: "sales-etl", DataDir: "/data"}
	path := pf.sidecarPath(info)
	assert.Equal(t, filepath.Join("/data", "sales-etl.index"), path)
}

func TestResolvedExplicitConfigFillsUnsetFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
remote_uri: bolt://pinned:7687
target_platforms: [oracle]
`), 0o644))

	pf := &projectFlags{projectID: "sales-etl", configPath: path}
	config, err := pf.resolved()
	require.NoError(t, err)
	assert.Equal(t, "sales-etl", config.ProjectID, "flag value must win over the file")
	assert.Equal(t, "bolt://pinned:7687", config.RemoteURI, "file fills the unset --remote flag")
}

func TestResolvedMissingConfigFileIsNotAnError(t *testing.T) {
	pf := &projectFlags{projectID: "sales-etl", configPath: filepath.Join(t.TempDir(), "absent.yaml")}
	config, err := pf.resolved()
	require.NoError(t, err)
	assert.Equal(t, "sales-etl", config.ProjectID)
	assert.Equal(t, "", config.RemoteURI)
}

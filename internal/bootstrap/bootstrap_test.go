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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenProjectDefaultsToMemoryBackend(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	client, info, err := OpenProject(ctx, ProjectConfig{
		ProjectID: "sales-dw",
		DataDir:   dataDir,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close(ctx)

	assert.Equal(t, "memory", info.Backend)
	assert.Equal(t, "sales-dw", info.ProjectID)
	assert.Equal(t, dataDir, info.DataDir)
}

func TestOpenProjectRequiresProjectID(t *testing.T) {
	ctx := context.Background()
	_, _, err := OpenProject(ctx, ProjectConfig{}, nil)
	require.Error(t, err)
}

func TestOpenProjectDefaultsDataDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ctx := context.Background()
	client, info, err := OpenProject(ctx, ProjectConfig{ProjectID: "t"}, nil)
	require.NoError(t, err)
	defer client.Close(ctx)
	assert.Contains(t, info.DataDir, filepath.Join(".mzc", "data", "t"))
}

func TestIndexSidecarPathNamespacesByProjectID(t *testing.T) {
	path := IndexSidecarPath(ProjectConfig{ProjectID: "sales-dw", DataDir: "/tmp/foo"})
	assert.Equal(t, "/tmp/foo/sales-dw.index", path)
}

func TestListProjectsNoErrorWhenDirMissing(t *testing.T) {
	_, err := ListProjects()
	require.NoError(t, err)
}

func TestResolveDataDirHonorsExplicitDataDir(t *testing.T) {
	dataDir, err := ResolveDataDir(ProjectConfig{ProjectID: "sales-dw", DataDir: "/tmp/foo"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/foo", dataDir)
}

func TestResolveDataDirDefaultsUnderHomeWithoutCreatingIt(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dataDir, err := ResolveDataDir(ProjectConfig{ProjectID: "sales-dw"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".mzc", "data", "sales-dw"), dataDir)

	_, statErr := os.Stat(dataDir)
	assert.True(t, os.IsNotExist(statErr), "ResolveDataDir must not create the directory")
}

func TestResolveDataDirRequiresProjectID(t *testing.T) {
	_, err := ResolveDataDir(ProjectConfig{})
	require.Error(t, err)
}

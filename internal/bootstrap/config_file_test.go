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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metazcode/mzc/pkg/typemap"
)

func TestLoadConfigFileMissingFileReturnsZeroValue(t *testing.T) {
	fc, err := LoadConfigFile(filepath.Join(t.TempDir(), "project.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &FileConfig{}, fc)
}

func TestLoadConfigFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
project_id: sales-etl
remote_uri: bolt://db.internal:7687
target_platforms:
  - sql_server
  - postgresql
`), 0o644))

	fc, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sales-etl", fc.ProjectID)
	assert.Equal(t, "bolt://db.internal:7687", fc.RemoteURI)
	assert.Equal(t, []string{"sql_server", "postgresql"}, fc.TargetPlatforms)
}

func TestLoadConfigFileRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project_id: [unterminated"), 0o644))

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestApplyDefaultsFillsOnlyZeroValuedFields(t *testing.T) {
	fc := &FileConfig{
		ProjectID:       "from-file",
		RemoteURI:       "bolt://from-file:7687",
		TargetPlatforms: []string{"mysql"},
	}

	resolved := fc.ApplyDefaults(ProjectConfig{
		ProjectID: "from-flag",
		DataDir:   "/explicit/data",
	})

	assert.Equal(t, "from-flag", resolved.ProjectID, "flag value must win over file default")
	assert.Equal(t, "/explicit/data", resolved.DataDir)
	assert.Equal(t, "bolt://from-file:7687", resolved.RemoteURI, "file fills an unset field")
	require.Len(t, resolved.TargetPlatforms, 1)
	assert.Equal(t, typemap.TargetPlatform("mysql"), resolved.TargetPlatforms[0])
}

func TestDefaultConfigPathJoinsDirAndFileName(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", ".mzc", "project.yaml"), DefaultConfigPath("/repo"))
}

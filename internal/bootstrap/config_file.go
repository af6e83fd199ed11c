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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/metazcode/mzc/pkg/typemap"
)

// DefaultConfigFileName is the project config file `cmd/mzc` looks for in
// the current directory, mirroring the teacher's .cie/project.yaml
// convention.
const DefaultConfigFileName = ".mzc/project.yaml"

// FileConfig is the on-disk shape of a project.yaml: every field a CLI flag
// can also set, so a project can pin its defaults once instead of passing
// --project/--remote on every invocation.
type FileConfig struct {
	ProjectID       string   `yaml:"project_id"`
	DataDir         string   `yaml:"data_dir"`
	RemoteURI       string   `yaml:"remote_uri"`
	RemoteUsername  string   `yaml:"remote_username"`
	RemotePassword  string   `yaml:"remote_password"`
	RemoteDatabase  string   `yaml:"remote_database"`
	TargetPlatforms []string `yaml:"target_platforms"`
}

// LoadConfigFile reads and parses path as a FileConfig. A missing file is
// not an error — callers get a zero-value FileConfig and fall back entirely
// to flags and ProjectConfig's own defaulting.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// ApplyDefaults fills every zero-valued field of config from fc, letting
// explicit values (typically CLI flags) take precedence over the file.
func (fc *FileConfig) ApplyDefaults(config ProjectConfig) ProjectConfig {
	if config.ProjectID == "" {
		config.ProjectID = fc.ProjectID
	}
	if config.DataDir == "" {
		config.DataDir = fc.DataDir
	}
	if config.RemoteURI == "" {
		config.RemoteURI = fc.RemoteURI
	}
	if config.RemoteUsername == "" {
		config.RemoteUsername = fc.RemoteUsername
	}
	if config.RemotePassword == "" {
		config.RemotePassword = fc.RemotePassword
	}
	if config.RemoteDatabase == "" {
		config.RemoteDatabase = fc.RemoteDatabase
	}
	if len(config.TargetPlatforms) == 0 && len(fc.TargetPlatforms) > 0 {
		platforms := make([]typemap.TargetPlatform, len(fc.TargetPlatforms))
		for i, p := range fc.TargetPlatforms {
			platforms[i] = typemap.TargetPlatform(p)
		}
		config.TargetPlatforms = platforms
	}
	return config
}

// DefaultConfigPath returns DefaultConfigFileName resolved under dir (the
// working directory a project's files live in).
func DefaultConfigPath(dir string) string {
	return filepath.Join(dir, DefaultConfigFileName)
}

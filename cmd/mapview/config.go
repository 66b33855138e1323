// cmd/mapview/config.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/overlay"
	"github.com/tacmap/mapcore/util"
)

type OverlayConfig struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
	Order  int    `json:"order,omitempty"`
}

type Config struct {
	LogLevel  string          `json:"log_level,omitempty"`
	Database  string          `json:"database,omitempty"`
	Snapshot  string          `json:"snapshot,omitempty"`
	Listen    string          `json:"listen,omitempty"`
	Overlays  []OverlayConfig `json:"overlays,omitempty"`
	LayerBins []string        `json:"layer_bins,omitempty"`
}

func defaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Listen:   "localhost:8089",
		Overlays: []OverlayConfig{
			{ID: "tracks", Name: "Tracks", Parent: overlay.MarkersParent},
			{ID: "drawings", Name: "Drawings", Parent: overlay.ShapesParent},
		},
		LayerBins: []string{"imagery", "tools"},
	}
}

func configFilePath(lg *log.Logger) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		lg.Errorf("Unable to find user config dir: %v", err)
		dir = "."
	}
	return filepath.Join(dir, "mapcore", "config.json")
}

// LoadOrMakeDefaultConfig reads the config file at path, writing out the
// default configuration if it doesn't exist. Duplicated keys in the file
// are reported but are not an error.
func LoadOrMakeDefaultConfig(path string, lg *log.Logger) (*Config, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c := defaultConfig()
		lg.Info("writing default config", slog.String("path", path))
		return c, c.Save(path)
	} else if err != nil {
		return nil, err
	}

	for _, d := range util.FindDuplicateJSONKeys(b) {
		lg.Warnf("%s: duplicate key %s; the last value will be used", path, d)
	}

	c := defaultConfig()
	if err := util.UnmarshalJSONBytes(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

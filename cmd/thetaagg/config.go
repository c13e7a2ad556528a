/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/apache/datasketches-aggregation-go/plancache"
	"github.com/apache/datasketches-aggregation-go/thetaagg"
)

const (
	modeDirect = "direct"
	modeBuffer = "buffer"
	modeVector = "vector"
)

// Config describes one run: where the rows live, how they are split into
// segments and which distinct counts to compute over them.
type Config struct {
	// Database is a SQLite data source name.
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
	// Segments are SQL conditions; each selects the rows of one segment.
	// Segments are aggregated independently and merged. No segments means
	// one segment with every row.
	Segments     []string              `yaml:"segments"`
	Mode         string                `yaml:"mode"`
	VectorSize   int                   `yaml:"vector_size"`
	Aggregations []thetaagg.Definition `yaml:"aggregations"`
	PlanCache    plancache.Config      `yaml:"plan_cache"`
}

func defaultConfig() Config {
	return Config{
		Mode:      modeVector,
		PlanCache: plancache.DefaultConfig(),
	}
}

func loadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("database must be set")
	}
	if c.Table == "" {
		return errors.New("table must be set")
	}
	switch c.Mode {
	case modeDirect, modeBuffer, modeVector:
	default:
		return fmt.Errorf("unknown mode %q (must be %s, %s or %s)", c.Mode, modeDirect, modeBuffer, modeVector)
	}
	if c.VectorSize < 0 {
		return fmt.Errorf("vector_size must not be negative: %d", c.VectorSize)
	}
	if len(c.Aggregations) == 0 {
		return errors.New("at least one aggregation must be configured")
	}
	return c.PlanCache.Validate()
}

// factories builds every configured aggregation, failing on the first invalid one.
func (c *Config) factories() ([]*thetaagg.Factory, error) {
	fs := make([]*thetaagg.Factory, 0, len(c.Aggregations))
	for i, def := range c.Aggregations {
		f, err := def.Factory()
		if err != nil {
			return nil, fmt.Errorf("aggregation %d (%s): %w", i, def.Name, err)
		}
		fs = append(fs, f)
	}
	return fs, nil
}

// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads distribution requests: ordered rows declaring where
// data currently exists (sources) and where it must end up (destinations).
// Row order is significant and preserved; every compiler tie-break is the
// declared order.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/distcp/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📦 Row is one declaration: a direction, a node, a path on that node, and an
// optional [from,to) sub-range. From and To must be given together.
type Row struct {
	Direction string `yaml:"direction" hcl:"direction"`
	Node      string `yaml:"node" hcl:"node"`
	Path      string `yaml:"path" hcl:"path"`
	From      *int   `yaml:"from,omitempty" hcl:"from,optional"`
	To        *int   `yaml:"to,omitempty" hcl:"to,optional"`
}

// 📝 String returns a short representation of the row
func (r Row) String() string {
	if r.From != nil && r.To != nil {
		return fmt.Sprintf("%s %s:%s[%d,%d)", r.Direction, r.Node, r.Path, *r.From, *r.To)
	}
	return fmt.Sprintf("%s %s:%s", r.Direction, r.Node, r.Path)
}

// 📦 Holding converts the row to its plan representation
func (r Row) Holding() plan.Holding {
	h := plan.Holding{Node: r.Node, Path: r.Path}
	if r.From != nil && r.To != nil {
		h.Range = &plan.Range{From: *r.From, To: *r.To}
	}
	return h
}

// 📚 Config represents a complete distribution request
type Config struct {
	Rows []Row `yaml:"rows"`
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if len(cfg.Rows) == 0 {
		return errors.Errorf("%w: no rows declared", plan.ErrConfig)
	}
	for i, row := range cfg.Rows {
		if !plan.Direction(row.Direction).Valid() {
			return errors.Errorf("%w: row %d: unknown direction %q", plan.ErrConfig, i, row.Direction)
		}
		if row.Node == "" {
			return errors.Errorf("%w: row %d: node is required", plan.ErrConfig, i)
		}
		if row.Path == "" {
			return errors.Errorf("%w: row %d: path is required", plan.ErrConfig, i)
		}
		if (row.From == nil) != (row.To == nil) {
			return errors.Errorf("%w: row %d: from and to must be given together", plan.ErrConfig, i)
		}
		if row.From != nil && *row.To <= *row.From {
			return errors.Errorf("%w: row %d: empty range [%d,%d)", plan.ErrConfig, i, *row.From, *row.To)
		}
	}
	return nil
}

// 📤 Sources returns the source holdings in declared order
func (cfg *Config) Sources() []plan.Holding {
	return cfg.holdings(plan.DirectionSource)
}

// 📥 Destinations returns the destination holdings in declared order
func (cfg *Config) Destinations() []plan.Holding {
	return cfg.holdings(plan.DirectionDestination)
}

func (cfg *Config) holdings(dir plan.Direction) []plan.Holding {
	var out []plan.Holding
	for _, row := range cfg.Rows {
		if plan.Direction(row.Direction) == dir {
			out = append(out, row.Holding())
		}
	}
	return out
}

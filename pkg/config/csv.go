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

package config

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/walteh/distcp/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

// 🔧 CSVParser implements the Parser interface for CSV files.
//
// The first record is a header naming the columns; direction, node and path
// are required, from and to are optional and may be left blank per row.
type CSVParser struct{}

func init() {
	Register(&CSVParser{})
}

func (p *CSVParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".csv")
}

func (p *CSVParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.Errorf("%w: reading CSV header: %w", plan.ErrConfig, err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"direction", "node", "path"} {
		if _, ok := col[required]; !ok {
			return nil, errors.Errorf("%w: CSV header misses column %q", plan.ErrConfig, required)
		}
	}

	var cfg Config
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("%w: reading CSV line %d: %w", plan.ErrConfig, line, err)
		}

		row := Row{
			Direction: field(record, col, "direction"),
			Node:      field(record, col, "node"),
			Path:      field(record, col, "path"),
		}
		if row.From, err = intField(record, col, "from"); err != nil {
			return nil, errors.Errorf("%w: CSV line %d: %w", plan.ErrConfig, line, err)
		}
		if row.To, err = intField(record, col, "to"); err != nil {
			return nil, errors.Errorf("%w: CSV line %d: %w", plan.ErrConfig, line, err)
		}
		cfg.Rows = append(cfg.Rows, row)
	}

	return &cfg, nil
}

// field returns the named column of a record, or "" when absent
func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// intField parses the named column as an integer, nil when blank or absent
func intField(record []string, col map[string]int, name string) (*int, error) {
	s := field(record, col, name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.Errorf("column %q: %w", name, err)
	}
	return &n, nil
}

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

package plan

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔌 ContentSource describes the content behind a holding. Implemented by
// transports (ssh, in-memory) and by test mocks.
type ContentSource interface {
	// IsFile reports whether path on node is a regular file (false = folder)
	IsFile(ctx context.Context, node, path string) (bool, error)

	// ListFiles lists all files under a folder, recursively, as paths
	// relative to the folder. No ordering is guaranteed by the implementation.
	ListFiles(ctx context.Context, node, path string) ([]string, error)

	// CountLines returns the number of lines in a file
	CountLines(ctx context.Context, node, path string) (int, error)
}

// 📏 Extent is the resolved size of a holding's content: a sorted file listing
// for folders, a line count for files.
type Extent struct {
	File  bool
	Lines int
	Files []string // sorted by full relative path
}

// 📊 Size returns the number of addressable items (lines or files)
func (x *Extent) Size() int {
	if x.File {
		return x.Lines
	}
	return len(x.Files)
}

// ✂️ Select returns the file subset a range picks out of a folder extent.
// The range must already be validated against the extent.
func (x *Extent) Select(r *Range) []string {
	if x.File || r == nil {
		return nil
	}
	return x.Files[r.From:r.To]
}

// 🔍 ResolveExtent determines the full extent of a source holding.
//
// Folder listings are re-sorted on every resolution: range selection must not
// depend on filesystem traversal order.
func ResolveExtent(ctx context.Context, src ContentSource, h Holding) (*Extent, error) {
	logger := zerolog.Ctx(ctx)

	isFile, err := src.IsFile(ctx, h.Node, h.Path)
	if err != nil {
		return nil, errors.Errorf("%w: probing %s: %w", ErrResolve, h, err)
	}

	if isFile {
		lines, err := src.CountLines(ctx, h.Node, h.Path)
		if err != nil {
			return nil, errors.Errorf("%w: counting lines of %s: %w", ErrResolve, h, err)
		}
		logger.Debug().Str("holding", h.String()).Int("lines", lines).Msg("resolved file extent")
		return &Extent{File: true, Lines: lines}, nil
	}

	files, err := src.ListFiles(ctx, h.Node, h.Path)
	if err != nil {
		return nil, errors.Errorf("%w: listing %s: %w", ErrResolve, h, err)
	}
	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	logger.Debug().Str("holding", h.String()).Int("files", len(sorted)).Msg("resolved folder extent")
	return &Extent{Files: sorted}, nil
}

// ✅ CheckRange validates a destination range against an extent size.
// A nil range (the whole content) is always valid.
func CheckRange(h Holding, size int) error {
	r := h.Range
	if r == nil {
		return nil
	}
	if r.From < 0 {
		return errors.Errorf("%w: %s: negative range start", ErrConfig, h)
	}
	if r.To <= r.From {
		return errors.Errorf("%w: %s: empty range", ErrConfig, h)
	}
	if r.To > size {
		return errors.Errorf("%w: %s: range end %d beyond extent %d", ErrConfig, h, r.To, size)
	}
	return nil
}

// ✅ CheckDisjoint validates that no two destination ranges overlap.
// Holdings without a range are skipped.
func CheckDisjoint(holdings []Holding) error {
	for i, a := range holdings {
		if a.Range == nil {
			continue
		}
		for _, b := range holdings[i+1:] {
			if b.Range == nil {
				continue
			}
			if a.Range.Overlaps(*b.Range) {
				return errors.Errorf("%w: overlapping destination ranges %s and %s", ErrConfig, a, b)
			}
		}
	}
	return nil
}

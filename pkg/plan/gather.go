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
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🧲 CompileGather builds a plan reconstructing a whole at the single source
// holding (the target) from the destination holdings (the contributors).
//
// Chunk order is purely positional: the i-th contributor row holds the i-th
// chunk. The compiler has no way to verify that this order matches the scatter
// that produced the chunks; keeping the row order consistent between the two
// calls is the caller's contract. Range fields on contributor rows are ignored.
//
// File gather appends contributor contents into the target in row order, so
// its single round is sequential. Folder gather merges independently named
// file sets and runs concurrent.
func CompileGather(ctx context.Context, content ContentSource, sources, destinations []Holding) (*Plan, error) {
	logger := zerolog.Ctx(ctx)

	if len(sources) != 1 {
		return nil, errors.Errorf("%w: gather needs exactly one source, got %d", ErrConfig, len(sources))
	}
	if len(destinations) < 1 {
		return nil, errors.Errorf("%w: gather needs at least one destination", ErrConfig)
	}
	target := sources[0]

	// the target decides file vs folder gather: a regular file at the target
	// path means line-append reconstruction, anything else a directory merge
	isFile, err := content.IsFile(ctx, target.Node, target.Path)
	if err != nil {
		return nil, errors.Errorf("%w: probing target %s: %w", ErrResolve, target, err)
	}

	round := Round{Sequential: isFile}
	for _, contrib := range destinations {
		from := contrib
		from.Range = nil
		if !isFile && !strings.HasSuffix(from.Path, "/") {
			// merge the contributor's contents, not the folder entry itself
			from.Path += "/"
		}
		if from.Node == target.Node && from.Path == target.Path {
			// the elided contributor's chunk is the content already at the
			// target, so the surviving edges must append after it
			if isFile {
				round.Preserve = true
			}
			continue
		}
		round.Edges = append(round.Edges, TransferEdge{From: from, To: target})
	}

	logger.Debug().
		Int("contributors", len(destinations)).
		Bool("file", isFile).
		Msg("compiled gather plan")

	return &Plan{Rounds: []Round{round}}, nil
}

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

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ✂️ CompileScatter builds a plan distributing disjoint sub-ranges of the
// source content to the destination holdings.
//
// Every source must hold the full content. Destination i (declared order) is
// paired with sources[i % len(sources)], so redundant sources share the load
// evenly. Sources are read-only and destinations are distinct nodes, so all
// edges form a single concurrent round. The copy primitive transfers only the
// destination's declared sub-extent, never the whole source.
func CompileScatter(ctx context.Context, content ContentSource, sources, destinations []Holding) (*Plan, error) {
	logger := zerolog.Ctx(ctx)

	if len(sources) < 1 {
		return nil, errors.Errorf("%w: scatter needs at least one source", ErrConfig)
	}
	if len(destinations) < 1 {
		return nil, errors.Errorf("%w: scatter needs at least one destination", ErrConfig)
	}
	for _, dst := range destinations {
		if dst.Range == nil {
			return nil, errors.Errorf("%w: scatter destination %s has no range", ErrConfig, dst)
		}
	}
	if err := CheckDisjoint(destinations); err != nil {
		return nil, err
	}

	// resolve every source up front so a bad range fails the whole plan
	// before anything moves
	extents := make([]*Extent, len(sources))
	for i, src := range sources {
		x, err := ResolveExtent(ctx, content, src)
		if err != nil {
			return nil, err
		}
		if i > 0 && x.File != extents[0].File {
			return nil, errors.Errorf("%w: source %s mixes file and folder content", ErrConfig, src)
		}
		extents[i] = x
	}

	var round Round
	for i, dst := range destinations {
		j := i % len(sources)
		if err := CheckRange(dst, extents[j].Size()); err != nil {
			return nil, err
		}
		round.Edges = append(round.Edges, TransferEdge{From: sources[j], To: dst})
	}

	logger.Debug().
		Int("sources", len(sources)).
		Int("destinations", len(destinations)).
		Bool("file", extents[0].File).
		Msg("compiled scatter plan")

	return &Plan{Rounds: []Round{round}}, nil
}

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

// 📡 CompileBroadcast builds a plan replicating whole content from the source
// holdings to every destination holding.
//
// The pool of usable sources doubles every round: each round pairs up to
// len(pool) destinations with pool members round-robin, and every destination
// served joins the pool for the following round. With one initial source and
// N destinations the plan has ceil(log2(N+1)) rounds. All ordering is the
// declared row order; destinations are never sorted.
func CompileBroadcast(ctx context.Context, sources, destinations []Holding) (*Plan, error) {
	logger := zerolog.Ctx(ctx)

	if len(sources) < 1 {
		return nil, errors.Errorf("%w: broadcast needs at least one source", ErrConfig)
	}
	if len(destinations) < 1 {
		return nil, errors.Errorf("%w: broadcast needs at least one destination", ErrConfig)
	}

	// broadcast replicates whole content: range fields on rows are ignored,
	// so strip them before any holding can reach an edge or the pool
	whole := func(holdings []Holding) []Holding {
		out := make([]Holding, len(holdings))
		for i, h := range holdings {
			h.Range = nil
			out[i] = h
		}
		return out
	}

	// available is rebuilt per compilation, append-only: a graph construction
	// aid, not runtime state.
	available := whole(sources)
	pending := whole(destinations)

	p := &Plan{}
	for len(pending) > 0 {
		k := len(available)
		take := k
		if take > len(pending) {
			take = len(pending)
		}

		var round Round
		for i, dst := range pending[:take] {
			src := available[i%k]
			if src.Node == dst.Node && src.Path == dst.Path {
				// self-loop, data is already there
				continue
			}
			round.Edges = append(round.Edges, TransferEdge{From: src, To: dst})
		}
		if len(round.Edges) > 0 {
			p.Rounds = append(p.Rounds, round)
		}

		// every served destination is a usable source from here on,
		// elided self-loops included
		available = append(available, pending[:take]...)
		pending = pending[take:]
	}

	logger.Debug().
		Int("sources", len(sources)).
		Int("destinations", len(destinations)).
		Int("rounds", len(p.Rounds)).
		Msg("compiled broadcast plan")

	return p, nil
}

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

// Package plan compiles distribution requests into ordered transfer plans.
//
// A plan is a sequence of rounds. Every edge within a round is independent of
// the others, so a round may run fully concurrent; a later round may read data
// an earlier round wrote, so rounds are separated by a hard barrier. The three
// compilers (broadcast, scatter, gather) share the Holding representation and
// differ only in how they pick sources for destinations.
package plan

import (
	"fmt"
	"strings"
)

// 🧭 Direction tags a config row as a data source or a data destination
type Direction string

const (
	DirectionSource      Direction = "source"
	DirectionDestination Direction = "destination"
)

// 🔍 Valid reports whether d is one of the known directions
func (d Direction) Valid() bool {
	return d == DirectionSource || d == DirectionDestination
}

// 📐 Range is a half-open interval [From,To), 0-indexed.
//
// For file holdings the interval selects lines, for folder holdings it selects
// entries of the lexicographically sorted file listing.
type Range struct {
	From int
	To   int
}

// 📏 Len returns the number of items the range selects
func (r Range) Len() int {
	return r.To - r.From
}

// 🔍 Overlaps reports whether two ranges share any index
func (r Range) Overlaps(other Range) bool {
	return r.From < other.To && other.From < r.To
}

// 📝 String returns the interval in [from,to) notation
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.From, r.To)
}

// 📦 Holding is the atomic unit of data known to reside somewhere: a node,
// a path on that node, and an optional sub-range of the content. A nil Range
// means the whole file or folder.
type Holding struct {
	Node  string
	Path  string
	Range *Range
}

// 🔍 TrailingSlash reports whether the path ends with a separator, which
// selects "copy the contents" rather than "copy the entry itself" (the
// conventional rsync rule).
func (h Holding) TrailingSlash() bool {
	return strings.HasSuffix(h.Path, "/")
}

// 📝 String formats the holding as node:path[range]
func (h Holding) String() string {
	if h.Range != nil {
		return fmt.Sprintf("%s:%s%s", h.Node, h.Path, h.Range)
	}
	return fmt.Sprintf("%s:%s", h.Node, h.Path)
}

// 🔗 TransferEdge is one copy operation: establish To from From
type TransferEdge struct {
	From Holding
	To   Holding
}

// 📝 String formats the edge as from -> to
func (e TransferEdge) String() string {
	return fmt.Sprintf("%s -> %s", e.From, e.To)
}

// 🔄 Round is a set of transfer edges executed between two barriers.
//
// Sequential rounds must run their edges in order (ordered appends into one
// target file); all other rounds may fan out fully concurrent. A sequential
// round with Preserve set must not truncate the target: the content already
// at the target path is the leading chunk, and every edge appends after it.
type Round struct {
	Edges      []TransferEdge
	Sequential bool
	Preserve   bool
}

// 🗺️ Plan is an ordered sequence of rounds, produced once per request and
// discarded after execution. No state survives between plans.
type Plan struct {
	Rounds []Round
}

// 📊 NumTransfers returns the total number of edges across all rounds
func (p *Plan) NumTransfers() int {
	n := 0
	for _, r := range p.Rounds {
		n += len(r.Edges)
	}
	return n
}

// 📋 Edges returns all edges of the plan in execution order
func (p *Plan) Edges() []TransferEdge {
	out := make([]TransferEdge, 0, p.NumTransfers())
	for _, r := range p.Rounds {
		out = append(out, r.Edges...)
	}
	return out
}

// 📝 String renders the plan round by round, one edge per line
func (p *Plan) String() string {
	var sb strings.Builder
	for i, r := range p.Rounds {
		mode := "concurrent"
		if r.Sequential {
			mode = "sequential"
		}
		fmt.Fprintf(&sb, "round %d (%s):\n", i, mode)
		for _, e := range r.Edges {
			fmt.Fprintf(&sb, "  %s\n", e)
		}
	}
	return sb.String()
}

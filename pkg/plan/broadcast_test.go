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
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func holding(node, path string) Holding {
	return Holding{Node: node, Path: path}
}

// athenaCluster builds destination holdings athena<first>..athena<last>
func athenaCluster(first, last int) []Holding {
	var out []Holding
	for i := first; i <= last; i++ {
		out = append(out, holding(fmt.Sprintf("athena%d", i), "/data/out"))
	}
	return out
}

func TestCompileBroadcast(t *testing.T) {
	ctx := context.Background()

	t.Run("doubling_example", func(t *testing.T) {
		// 1 source + 7 destinations: 1, then 2, then 4 transfers
		p, err := CompileBroadcast(ctx, athenaCluster(1, 1), athenaCluster(2, 8))
		require.NoError(t, err, "compiling broadcast should succeed")
		require.Len(t, p.Rounds, 3, "7 destinations need 3 rounds")

		want := [][]string{
			{"athena1 -> athena2"},
			{"athena1 -> athena3", "athena2 -> athena4"},
			{"athena1 -> athena5", "athena2 -> athena6", "athena3 -> athena7", "athena4 -> athena8"},
		}
		for i, round := range p.Rounds {
			require.Len(t, round.Edges, len(want[i]), "round %d edge count", i)
			assert.False(t, round.Sequential, "broadcast rounds are concurrent")
			for j, edge := range round.Edges {
				got := fmt.Sprintf("%s -> %s", edge.From.Node, edge.To.Node)
				assert.Equal(t, want[i][j], got, "round %d edge %d", i, j)
			}
		}
	})

	t.Run("round_count_log2", func(t *testing.T) {
		for _, n := range []int{1, 2, 3, 4, 7, 8, 15, 16, 100} {
			p, err := CompileBroadcast(ctx, athenaCluster(1, 1), athenaCluster(2, n+1))
			require.NoError(t, err, "compiling broadcast of %d destinations should succeed", n)
			want := int(math.Ceil(math.Log2(float64(n + 1))))
			assert.Len(t, p.Rounds, want, "%d destinations should take %d rounds", n, want)
		}
	})

	t.Run("every_destination_served_once", func(t *testing.T) {
		destinations := athenaCluster(2, 20)
		p, err := CompileBroadcast(ctx, athenaCluster(1, 1), destinations)
		require.NoError(t, err, "compiling broadcast should succeed")

		// no destination receives twice, and every source was established in
		// a strictly earlier round (or is the initial source)
		established := map[string]int{"athena1": -1}
		served := map[string]bool{}
		for i, round := range p.Rounds {
			for _, edge := range round.Edges {
				assert.False(t, served[edge.To.Node], "%s served twice", edge.To.Node)
				served[edge.To.Node] = true

				at, ok := established[edge.From.Node]
				require.True(t, ok, "source %s never established", edge.From.Node)
				assert.Less(t, at, i, "source %s used in the round it was written", edge.From.Node)
			}
			for _, edge := range round.Edges {
				established[edge.To.Node] = i
			}
		}
		assert.Len(t, served, len(destinations), "every destination should be served")
	})

	t.Run("multiple_initial_sources", func(t *testing.T) {
		p, err := CompileBroadcast(ctx, athenaCluster(1, 2), athenaCluster(3, 8))
		require.NoError(t, err, "compiling broadcast should succeed")
		require.Len(t, p.Rounds, 2, "6 destinations with 2 sources take 2 rounds")
		assert.Len(t, p.Rounds[0].Edges, 2, "first round serves 2")
		assert.Len(t, p.Rounds[1].Edges, 4, "second round serves 4")

		// round-robin pairing in the first round
		assert.Equal(t, "athena1", p.Rounds[0].Edges[0].From.Node, "first pairing")
		assert.Equal(t, "athena2", p.Rounds[0].Edges[1].From.Node, "second pairing")
	})

	t.Run("last_round_takes_remainder", func(t *testing.T) {
		// 1 source + 5 destinations: rounds of 1, 2, 2
		p, err := CompileBroadcast(ctx, athenaCluster(1, 1), athenaCluster(2, 6))
		require.NoError(t, err, "compiling broadcast should succeed")
		require.Len(t, p.Rounds, 3, "5 destinations take 3 rounds")
		assert.Len(t, p.Rounds[2].Edges, 2, "last round copies only what remains")
	})

	t.Run("self_loop_elided", func(t *testing.T) {
		src := []Holding{holding("athena1", "/data/out")}
		dst := []Holding{holding("athena1", "/data/out"), holding("athena2", "/data/out")}
		p, err := CompileBroadcast(ctx, src, dst)
		require.NoError(t, err, "compiling broadcast should succeed")

		for _, edge := range p.Edges() {
			assert.NotEqual(t, edge.From, edge.To, "self-loops must be elided")
		}
		// the elided destination still becomes a usable source
		assert.Len(t, p.Edges(), 1, "only the real transfer remains")
	})

	t.Run("range_fields_stripped", func(t *testing.T) {
		src := []Holding{{Node: "athena1", Path: "/data/out", Range: &Range{From: 0, To: 2}}}
		dst := []Holding{
			{Node: "athena2", Path: "/data/out", Range: &Range{From: 0, To: 2}},
			{Node: "athena3", Path: "/data/out", Range: &Range{From: 2, To: 4}},
			{Node: "athena4", Path: "/data/out"},
		}
		p, err := CompileBroadcast(ctx, src, dst)
		require.NoError(t, err, "compiling broadcast should succeed")

		// broadcast replicates whole content; a ranged edge would hand a
		// destination a truncated copy that later rounds then replicate
		for _, edge := range p.Edges() {
			assert.Nil(t, edge.From.Range, "source %s must carry no range", edge.From.Node)
			assert.Nil(t, edge.To.Range, "destination %s must carry no range", edge.To.Node)
		}
	})

	t.Run("missing_sources", func(t *testing.T) {
		_, err := CompileBroadcast(ctx, nil, athenaCluster(2, 3))
		require.Error(t, err, "broadcast without sources should fail")
		assert.True(t, errors.Is(err, ErrConfig), "should be a config error")
	})

	t.Run("missing_destinations", func(t *testing.T) {
		_, err := CompileBroadcast(ctx, athenaCluster(1, 1), nil)
		require.Error(t, err, "broadcast without destinations should fail")
		assert.True(t, errors.Is(err, ErrConfig), "should be a config error")
	})
}

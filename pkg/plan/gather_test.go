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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func TestCompileGather(t *testing.T) {
	ctx := context.Background()

	target := []Holding{holding("athena1", "/data/input.txt")}

	t.Run("file_gather_is_sequential_in_row_order", func(t *testing.T) {
		content := &MockContent{}
		content.On("IsFile", mock.Anything, "athena1", "/data/input.txt").Return(true, nil)

		contributors := []Holding{
			part("athena3", 0, 2),
			part("athena2", 2, 4),
			part("athena5", 4, 6),
		}

		p, err := CompileGather(ctx, content, target, contributors)
		require.NoError(t, err, "compiling gather should succeed")
		require.Len(t, p.Rounds, 1, "gather is a single round")
		require.True(t, p.Rounds[0].Sequential, "file gather appends in order")
		assert.False(t, p.Rounds[0].Preserve, "no elided chunk, the first edge truncates")

		// chunk order is contributor row order, never sorted, ranges dropped
		wantOrder := []string{"athena3", "athena2", "athena5"}
		for i, edge := range p.Rounds[0].Edges {
			assert.Equal(t, wantOrder[i], edge.From.Node, "chunk %d contributor", i)
			assert.Nil(t, edge.From.Range, "contributor range fields are ignored")
			assert.Equal(t, "athena1", edge.To.Node, "all edges write the target")
		}
	})

	t.Run("folder_gather_merges_contents_concurrently", func(t *testing.T) {
		content := &MockContent{}
		content.On("IsFile", mock.Anything, "athena1", "/data/merged").Return(false, nil)

		folderTarget := []Holding{holding("athena1", "/data/merged")}
		contributors := []Holding{
			holding("athena2", "/data/part"),
			holding("athena3", "/data/part/"),
		}

		p, err := CompileGather(ctx, content, folderTarget, contributors)
		require.NoError(t, err, "compiling folder gather should succeed")
		require.Len(t, p.Rounds, 1, "gather is a single round")
		assert.False(t, p.Rounds[0].Sequential, "folder gather edges are independent")

		for _, edge := range p.Rounds[0].Edges {
			assert.True(t, edge.From.TrailingSlash(), "contributor paths copy their contents")
		}
	})

	t.Run("self_loop_contributor_skipped", func(t *testing.T) {
		content := &MockContent{}
		content.On("IsFile", mock.Anything, "athena1", "/data/input.txt").Return(true, nil)

		p, err := CompileGather(ctx, content, target, []Holding{
			holding("athena1", "/data/input.txt"),
			holding("athena2", "/data/input.txt"),
		})
		require.NoError(t, err, "compiling gather should succeed")
		require.Len(t, p.Rounds[0].Edges, 1, "self-loop contributor is elided")
		assert.Equal(t, "athena2", p.Rounds[0].Edges[0].From.Node, "remaining contributor")
		assert.True(t, p.Rounds[0].Preserve, "the target already holds the elided chunk, truncating would destroy it")
	})

	t.Run("needs_exactly_one_source", func(t *testing.T) {
		_, err := CompileGather(ctx, &MockContent{}, athenaCluster(1, 2), []Holding{holding("athena3", "/data/part")})
		require.Error(t, err, "gather with two sources should fail")
		assert.True(t, errors.Is(err, ErrConfig), "should be a config error")
	})

	t.Run("unprobeable_target_aborts", func(t *testing.T) {
		content := &MockContent{}
		content.On("IsFile", mock.Anything, "athena1", "/data/input.txt").Return(
			false, errors.New("connection refused"),
		)

		_, err := CompileGather(ctx, content, target, []Holding{holding("athena2", "/data/part")})
		require.Error(t, err, "unprobeable target should abort planning")
		assert.True(t, errors.Is(err, ErrResolve), "should be a resolution error")
	})
}

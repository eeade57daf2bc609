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

package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/distcp/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

func TestReporter(t *testing.T) {
	ctx := context.Background()

	edge := plan.TransferEdge{
		From: plan.Holding{Node: "athena1", Path: "/data/out"},
		To:   plan.Holding{Node: "athena2", Path: "/data/out"},
	}
	p := &plan.Plan{Rounds: []plan.Round{{Edges: []plan.TransferEdge{edge}}}}

	t.Run("successful_plan", func(t *testing.T) {
		var buf bytes.Buffer
		r := New(&buf, zerolog.Disabled, false)

		r.PlanStarted(ctx, p)
		r.EdgeFinished(ctx, 0, edge, nil)
		r.PlanFinished(ctx, nil)

		out := buf.String()
		assert.Contains(t, out, "1 transfers in 1 rounds", "header shows plan size")
		assert.Contains(t, out, "athena1:/data/out", "edge line shows the source")
		assert.Contains(t, out, "round 0", "edge line shows the round")
		assert.Contains(t, out, "all transfers completed", "epilogue on success")
	})

	t.Run("failed_plan", func(t *testing.T) {
		var buf bytes.Buffer
		r := New(&buf, zerolog.Disabled, false)

		r.PlanStarted(ctx, p)
		err := errors.New("connection reset")
		r.EdgeFinished(ctx, 0, edge, err)
		r.PlanFinished(ctx, err)

		out := buf.String()
		require.Contains(t, out, "plan aborted", "epilogue on failure")
		assert.Contains(t, out, "connection reset", "failure reason is shown")
	})
}

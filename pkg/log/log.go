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

// Package log renders plan execution progress on the console and mirrors
// every event into zerolog.
package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/distcp/pkg/executor"
	"github.com/walteh/distcp/pkg/plan"
)

// 🎨 Display configuration
const (
	edgeIndent = 4  // spaces to indent edge entries
	fromWidth  = 30 // width for the source endpoint
	toWidth    = 30 // width for the destination endpoint
)

// 🎯 Reporter prints per-edge status lines and an overall progress bar
type Reporter struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
	bar     *pterm.ProgressbarPrinter
	showBar bool
}

var _ executor.Reporter = (*Reporter)(nil)

// 🏭 New creates a new reporter. With progress enabled a pterm bar tracks the
// total transfer count across all rounds.
func New(console io.Writer, level zerolog.Level, progress bool) *Reporter {
	zlog := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(level)
	return &Reporter{
		zlog:    zlog,
		console: console,
		showBar: progress,
	}
}

// 📝 PlanStarted prints the plan header and starts the progress bar
func (r *Reporter) PlanStarted(ctx context.Context, p *plan.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.console, "%s %s\n",
		color.New(color.Bold, color.FgCyan).Sprint("distcp"),
		color.New(color.Faint).Sprintf("• %d transfers in %d rounds", p.NumTransfers(), len(p.Rounds)))

	if r.showBar {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(p.NumTransfers()).
			WithTitle("transferring").
			Start()
		if err == nil {
			r.bar = bar
		}
	}

	r.zlog.Info().
		Int("transfers", p.NumTransfers()).
		Int("rounds", len(p.Rounds)).
		Msg("plan started")
}

// 📝 EdgeFinished prints one status line per completed transfer
func (r *Reporter) EdgeFinished(ctx context.Context, round int, edge plan.TransferEdge, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbol := color.GreenString("✓")
	if err != nil {
		symbol = color.RedString("✗")
	}
	fmt.Fprintf(r.console, "%*s%s %-*s %s %-*s %s\n",
		edgeIndent, "",
		symbol,
		fromWidth, edge.From.String(),
		color.New(color.Faint).Sprint("→"),
		toWidth, edge.To.String(),
		color.New(color.Faint).Sprintf("round %d", round))

	if r.bar != nil {
		r.bar.Increment()
	}

	evt := r.zlog.Info()
	if err != nil {
		evt = r.zlog.Error().Err(err)
	}
	evt.
		Int("round", round).
		Str("from", edge.From.String()).
		Str("to", edge.To.String()).
		Msg("transfer finished")
}

// 📝 PlanFinished stops the progress bar and prints the epilogue
func (r *Reporter) PlanFinished(ctx context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.bar != nil {
		_, _ = r.bar.Stop()
		r.bar = nil
	}

	if err != nil {
		fmt.Fprintf(r.console, "❌ %s\n", color.RedString("plan aborted: %v", err))
		r.zlog.Error().Err(err).Msg("plan aborted")
		return
	}
	fmt.Fprintf(r.console, "✅ %s\n", color.GreenString("all transfers completed"))
	r.zlog.Info().Msg("plan finished")
}

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

// Package executor walks a compiled plan round by round and drives the copy
// primitive for every edge.
package executor

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/distcp/pkg/plan"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🔧 CopyOptions carries per-invocation details for the copy primitive
type CopyOptions struct {
	// Append appends to the destination file instead of truncating it.
	// Only meaningful for file targets in sequential rounds.
	Append bool
}

// 🔌 Copier is the abstract copy primitive. It must honor the trailing-slash
// rule on the source path (slash = copy contents, no slash = copy the entry)
// and, when the destination holding carries a range, transfer only that
// sub-extent of the source.
type Copier interface {
	Copy(ctx context.Context, edge plan.TransferEdge, opts CopyOptions) error
}

// 👀 Reporter observes plan execution. EdgeFinished may be called from edge
// goroutines concurrently.
type Reporter interface {
	PlanStarted(ctx context.Context, p *plan.Plan)
	EdgeFinished(ctx context.Context, round int, edge plan.TransferEdge, err error)
	PlanFinished(ctx context.Context, err error)
}

// 🔧 Options contains configuration for the executor
type Options struct {
	// Copier performs the actual transfers
	Copier Copier
	// Reporter receives progress events, may be nil
	Reporter Reporter
}

// 🏃 Executor executes plans with a barrier between rounds
type Executor struct {
	copier   Copier
	reporter Reporter
}

// 🏭 New creates a new executor with the given options
func New(opts Options) (*Executor, error) {
	if opts.Copier == nil {
		return nil, errors.Errorf("copier is required")
	}
	return &Executor{
		copier:   opts.Copier,
		reporter: opts.Reporter,
	}, nil
}

// 🏃 Run executes the plan. Edges of a concurrent round fan out together and
// are joined before the next round starts, because a later round may read what
// an earlier round wrote. Sequential rounds run their edges in declared order
// (ordered appends into one target). The first failing edge aborts the round
// and no later round is started.
func (x *Executor) Run(ctx context.Context, p *plan.Plan) error {
	logger := zerolog.Ctx(ctx)

	if x.reporter != nil {
		x.reporter.PlanStarted(ctx, p)
	}

	for i, round := range p.Rounds {
		logger.Debug().
			Int("round", i).
			Int("edges", len(round.Edges)).
			Bool("sequential", round.Sequential).
			Msg("starting round")

		var err error
		if round.Sequential {
			err = x.runSequential(ctx, i, round)
		} else {
			err = x.runConcurrent(ctx, i, round)
		}
		if err != nil {
			if x.reporter != nil {
				x.reporter.PlanFinished(ctx, err)
			}
			return err
		}
	}

	if x.reporter != nil {
		x.reporter.PlanFinished(ctx, nil)
	}
	return nil
}

// 🔀 runConcurrent fans out every edge of the round and joins them all
func (x *Executor) runConcurrent(ctx context.Context, round int, r plan.Round) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, edge := range r.Edges {
		edge := edge
		g.Go(func() error {
			err := x.copier.Copy(gctx, edge, CopyOptions{})
			if x.reporter != nil {
				x.reporter.EdgeFinished(ctx, round, edge, err)
			}
			if err != nil {
				return errors.Errorf("%w: round %d: %s: %w", plan.ErrTransfer, round, edge, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ➡️ runSequential runs the round's edges one by one in declared order.
// The first edge truncates the target and every later edge appends, unless
// the round preserves existing target content, in which case every edge
// appends.
func (x *Executor) runSequential(ctx context.Context, round int, r plan.Round) error {
	for i, edge := range r.Edges {
		err := x.copier.Copy(ctx, edge, CopyOptions{Append: i > 0 || r.Preserve})
		if x.reporter != nil {
			x.reporter.EdgeFinished(ctx, round, edge, err)
		}
		if err != nil {
			return errors.Errorf("%w: round %d: %s: %w", plan.ErrTransfer, round, edge, err)
		}
	}
	return nil
}

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

// Package transport implements the abstract copy primitive. The ssh transport
// shells out to ssh and rsync on the cluster nodes (authentication is assumed
// to be set up out of band, e.g. agent or host keys); the memory transport is
// an in-process cluster for tests and plan verification.
package transport

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	shellexec "github.com/input-output-hk/catalyst-forge-libs/executor"
	"github.com/rs/zerolog"
	"github.com/walteh/distcp/pkg/executor"
	"github.com/walteh/distcp/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

// 🔧 SSHOptions configures the ssh transport
type SSHOptions struct {
	// Retries is the number of times a failed remote command is retried
	Retries int
	// RetryDelay is the wait between retries
	RetryDelay time.Duration
	// Exclude filters folder listings by doublestar glob patterns
	// (relative paths); excluded files are never part of a folder extent
	Exclude []string
}

// 🚀 SSH runs the copy primitive over ssh and rsync, mirroring the classic
// "ssh dst 'rsync -a src:path path'" pull pattern so data flows node-to-node,
// never through the coordinating host.
type SSH struct {
	ssh  *shellexec.WrappedExecutor
	opts SSHOptions
}

var (
	_ executor.Copier    = (*SSH)(nil)
	_ plan.ContentSource = (*SSH)(nil)
)

// 🏭 NewSSH creates a new ssh transport
func NewSSH(opts SSHOptions) *SSH {
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}
	return &SSH{
		ssh:  shellexec.NewWrappedExecutor("ssh"),
		opts: opts,
	}
}

// 🏃 run executes a shell command on a node via ssh, with optional stdin
func (t *SSH) run(ctx context.Context, node, command, stdin string) (*shellexec.Result, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("node", node).Str("command", command).Msg("running remote command")

	result, err := t.ssh.Command(node, command).ExecuteWithInput(ctx, stdin,
		shellexec.WithRetry(t.opts.Retries, t.opts.RetryDelay),
	)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = strings.TrimSpace(result.Stderr)
		}
		return result, errors.Errorf("ssh %s: %s: %w", node, stderr, err)
	}
	return result, nil
}

// 🔍 IsFile reports whether path on node is a regular file
func (t *SSH) IsFile(ctx context.Context, node, p string) (bool, error) {
	result, err := t.ssh.Command(node, fmt.Sprintf("test -f %s", p)).Execute(ctx)
	if err != nil {
		if result != nil && result.ExitCode != 0 {
			// test exited nonzero: not a regular file
			return false, nil
		}
		return false, errors.Errorf("ssh %s: test -f %s: %w", node, p, err)
	}
	return true, nil
}

// 📂 ListFiles lists all files under a folder recursively, relative to it
func (t *SSH) ListFiles(ctx context.Context, node, folder string) ([]string, error) {
	result, err := t.run(ctx, node, fmt.Sprintf("find %s -type f", folder), "")
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimSuffix(folder, "/") + "/"
	var files []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rel := strings.TrimPrefix(line, prefix)
		if t.excluded(ctx, rel) {
			continue
		}
		files = append(files, rel)
	}
	return files, nil
}

// 🔢 CountLines returns the number of lines in a file
func (t *SSH) CountLines(ctx context.Context, node, p string) (int, error) {
	result, err := t.run(ctx, node, fmt.Sprintf("wc -l %s", p), "")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(result.Stdout)
	if len(fields) == 0 {
		return 0, errors.Errorf("ssh %s: unexpected wc output %q", node, result.Stdout)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, errors.Errorf("ssh %s: parsing wc output %q: %w", node, result.Stdout, err)
	}
	return n, nil
}

// 🗑️ Remove deletes a file on a node
func (t *SSH) Remove(ctx context.Context, node, p string) error {
	_, err := t.run(ctx, node, fmt.Sprintf("rm -f %s", p), "")
	return err
}

// 📋 Copy implements the copy primitive for one transfer edge
func (t *SSH) Copy(ctx context.Context, edge plan.TransferEdge, opts executor.CopyOptions) error {
	if edge.To.Range != nil {
		return t.copyRange(ctx, edge, opts)
	}
	if opts.Append {
		// ordered append into the gather target, whole contributor content
		return t.sendLines(ctx, edge.From, edge.To, nil, true)
	}
	return t.rsync(ctx, edge.From, edge.To, nil)
}

// ✂️ copyRange transfers only the destination's declared sub-extent
func (t *SSH) copyRange(ctx context.Context, edge plan.TransferEdge, opts executor.CopyOptions) error {
	isFile, err := t.IsFile(ctx, edge.From.Node, edge.From.Path)
	if err != nil {
		return err
	}
	if isFile {
		return t.sendLines(ctx, edge.From, edge.To, edge.To.Range, opts.Append)
	}

	// folder scatter: re-derive the sorted listing and pick the subset;
	// the compiler has already validated the bounds
	extent, err := plan.ResolveExtent(ctx, t, edge.From)
	if err != nil {
		return err
	}
	if edge.To.Range.To > extent.Size() {
		return errors.Errorf("%w: %s: listing shrank below range end %d", plan.ErrResolve, edge.From, edge.To.Range.To)
	}
	return t.rsync(ctx, edge.From, edge.To, extent.Select(edge.To.Range))
}

// 📡 rsync copies a path (or a file subset of it) between nodes. The command
// runs on the destination node and pulls from the source, so the trailing
// slash on the source path keeps its conventional contents-vs-entry meaning.
func (t *SSH) rsync(ctx context.Context, from, to plan.Holding, files []string) error {
	parent := path.Dir(strings.TrimSuffix(to.Path, "/"))
	var command string
	var stdin string
	if files == nil {
		command = fmt.Sprintf("mkdir -p %s && rsync -a %s:%s %s", parent, from.Node, from.Path, to.Path)
	} else {
		command = fmt.Sprintf("mkdir -p %s && rsync -a --files-from=- %s:%s %s", parent, from.Node, from.Path, to.Path)
		stdin = strings.Join(files, "\n")
	}
	_, err := t.run(ctx, to.Node, command, stdin)
	return err
}

// 📜 sendLines streams a line interval of a file from one node to another.
// A nil interval sends the whole file. The destination file is truncated
// unless append is set.
func (t *SSH) sendLines(ctx context.Context, from, to plan.Holding, interval *plan.Range, append bool) error {
	pipe := ">"
	if append {
		pipe = ">>"
	}

	var command string
	if interval == nil {
		command = fmt.Sprintf("cat %s | ssh %s 'cat %s %s'", from.Path, to.Node, pipe, to.Path)
	} else {
		// sed addresses lines 1-indexed inclusive, the interval is
		// 0-indexed end-exclusive
		command = fmt.Sprintf("sed -n '%d,%dp' %s | ssh %s 'cat %s %s'",
			interval.From+1, interval.To, from.Path, to.Node, pipe, to.Path)
	}
	_, err := t.run(ctx, from.Node, command, "")
	return err
}

// 🔍 excluded checks the relative path against the exclude patterns
func (t *SSH) excluded(ctx context.Context, rel string) bool {
	logger := zerolog.Ctx(ctx)
	for _, pattern := range t.opts.Exclude {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			logger.Debug().Str("pattern", pattern).Str("path", rel).Err(err).Msg("error matching pattern")
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

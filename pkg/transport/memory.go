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

package transport

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/walteh/distcp/pkg/executor"
	"github.com/walteh/distcp/pkg/plan"
	"gitlab.com/tozd/go/errors"
)

// 🧪 Memory is an in-process cluster: every node is a map of file paths to
// line slices and folder paths to name->content maps. It implements the same
// interfaces as the ssh transport and is safe for concurrent rounds.
type Memory struct {
	mu    sync.Mutex
	nodes map[string]*memNode
}

type memNode struct {
	files   map[string][]string          // file path -> lines
	folders map[string]map[string]string // folder path -> relative name -> content
}

var (
	_ executor.Copier    = (*Memory)(nil)
	_ plan.ContentSource = (*Memory)(nil)
)

// 🏭 NewMemory creates an empty in-memory cluster
func NewMemory() *Memory {
	return &Memory{nodes: map[string]*memNode{}}
}

func (m *Memory) node(name string) *memNode {
	n, ok := m.nodes[name]
	if !ok {
		n = &memNode{
			files:   map[string][]string{},
			folders: map[string]map[string]string{},
		}
		m.nodes[name] = n
	}
	return n
}

// 📄 AddFile seeds a file on a node
func (m *Memory) AddFile(node, path string, lines []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.node(node).files[path] = append([]string(nil), lines...)
}

// 📂 AddFolder seeds a folder on a node, files keyed by relative path
func (m *Memory) AddFolder(node, path string, files map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder := map[string]string{}
	for name, content := range files {
		folder[name] = content
	}
	m.node(node).folders[strings.TrimSuffix(path, "/")] = folder
}

// 📄 File returns the lines of a file on a node
func (m *Memory) File(node, path string) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.node(node).files[path]
	if !ok {
		return nil, false
	}
	return append([]string(nil), lines...), true
}

// 📂 Folder returns the file set of a folder on a node
func (m *Memory) Folder(node, path string) (map[string]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder, ok := m.node(node).folders[strings.TrimSuffix(path, "/")]
	if !ok {
		return nil, false
	}
	out := map[string]string{}
	for name, content := range folder {
		out[name] = content
	}
	return out, true
}

// 🔍 IsFile implements plan.ContentSource
func (m *Memory) IsFile(ctx context.Context, node, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.node(node).files[path]
	return ok, nil
}

// 📂 ListFiles implements plan.ContentSource. Names are returned in map
// iteration order on purpose: callers must sort.
func (m *Memory) ListFiles(ctx context.Context, node, path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	folder, ok := m.node(node).folders[strings.TrimSuffix(path, "/")]
	if !ok {
		return nil, errors.Errorf("no folder %s on node %s", path, node)
	}
	var names []string
	for name := range folder {
		names = append(names, name)
	}
	return names, nil
}

// 🔢 CountLines implements plan.ContentSource
func (m *Memory) CountLines(ctx context.Context, node, path string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.node(node).files[path]
	if !ok {
		return 0, errors.Errorf("no file %s on node %s", path, node)
	}
	return len(lines), nil
}

// 📋 Copy implements the copy primitive against the in-memory cluster,
// with the same range, append and trailing-slash semantics as the ssh
// transport.
func (m *Memory) Copy(ctx context.Context, edge plan.TransferEdge, opts executor.CopyOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.node(edge.From.Node)
	srcPath := strings.TrimSuffix(edge.From.Path, "/")

	if lines, ok := src.files[srcPath]; ok {
		selected := lines
		if edge.To.Range != nil {
			r := edge.To.Range
			if r.To > len(lines) {
				return errors.Errorf("range %s beyond %d lines of %s", r, len(lines), edge.From)
			}
			selected = lines[r.From:r.To]
		}
		dst := m.node(edge.To.Node)
		if opts.Append {
			dst.files[edge.To.Path] = append(dst.files[edge.To.Path], selected...)
		} else {
			dst.files[edge.To.Path] = append([]string(nil), selected...)
		}
		return nil
	}

	folder, ok := src.folders[srcPath]
	if !ok {
		return errors.Errorf("nothing at %s", edge.From)
	}

	names := make([]string, 0, len(folder))
	for name := range folder {
		names = append(names, name)
	}
	sort.Strings(names)
	if edge.To.Range != nil {
		r := edge.To.Range
		if r.To > len(names) {
			return errors.Errorf("range %s beyond %d files of %s", r, len(names), edge.From)
		}
		names = names[r.From:r.To]
	}

	// trailing slash: merge contents into the destination folder; without it
	// the folder entry itself lands under the destination. A file subset
	// (--files-from semantics) always merges relative to the destination.
	dstPath := strings.TrimSuffix(edge.To.Path, "/")
	if edge.To.Range == nil && !edge.From.TrailingSlash() {
		dstPath = dstPath + "/" + path.Base(srcPath)
	}

	dst := m.node(edge.To.Node)
	if dst.folders[dstPath] == nil {
		dst.folders[dstPath] = map[string]string{}
	}
	for _, name := range names {
		dst.folders[dstPath][name] = folder[name]
	}
	return nil
}

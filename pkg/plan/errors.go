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
	"gitlab.com/tozd/go/errors"
)

var (
	// ❌ ErrConfig marks a malformed request: unknown direction, bad range,
	// overlapping destination ranges. Detected entirely at compile time,
	// nothing is executed.
	ErrConfig = errors.Base("invalid configuration")

	// ❌ ErrResolve marks a failure to determine the extent of a source
	// holding (unreadable folder listing, line count). Aborts planning.
	ErrResolve = errors.Base("resolving content extent")

	// ❌ ErrTransfer marks a copy primitive failure at execution time
	ErrTransfer = errors.Base("transfer failed")
)

// Copyright Project GoHPC Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package master

// Status tags a Unit as work to run or as a stop marker.
type Status int

const (
	StatusRun Status = iota
	StatusStop
)

func (s Status) String() string {
	switch s {
	case StatusRun:
		return "run"
	case StatusStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Unit is one entry on the shared queue: either Run(action) or Stop.
// Units are immutable once built.
type Unit struct {
	status Status
	action func()
}

// Stop is the stop marker. It carries no per-worker state, so the same value
// is enqueued once for every worker.
var Stop = Unit{status: StatusStop}

// Run wraps action in a unit of work.
func Run(action func()) Unit {
	return Unit{status: StatusRun, action: action}
}

// Status reports whether u is work or a stop marker.
func (u Unit) Status() Status { return u.status }

// Action returns the closure to execute. It is nil for Stop.
func (u Unit) Action() func() { return u.action }

// runnable reports whether a worker may execute u. A Run unit with a nil
// action is treated like Stop.
func (u Unit) runnable() bool {
	return u.status == StatusRun && u.action != nil
}

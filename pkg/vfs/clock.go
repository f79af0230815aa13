// Copyright 2025 Chainguard, Inc.
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

package vfs

import "time"

// WallClock is the sentinel time value meaning "use real wall-clock time".
const WallClock int64 = -1

// Clock supplies the current time in epoch milliseconds.
type Clock func() int64

// now returns the file system's current time in epoch milliseconds.
func (fs *FS) now() int64 {
	if fs.clock != nil {
		return fs.clock()
	}
	if fs.time == WallClock {
		return time.Now().UnixMilli()
	}
	return fs.time
}

// Time returns the current time value.
func (fs *FS) Time() int64 {
	return fs.now()
}

// SetTime replaces the time source with a fixed epoch-ms value and returns
// the previous current time. WallClock restores real time.
func (fs *FS) SetTime(v int64) int64 {
	prev := fs.now()
	fs.clock = nil
	fs.time = v
	return prev
}

// SetClock replaces the time source with a function.
func (fs *FS) SetClock(fn Clock) {
	fs.clock = fn
}

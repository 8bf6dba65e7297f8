// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock supplies the current time. Code that stamps or ages records
// takes a Clock instead of calling time.Now so tests can pin time.
type Clock interface {
	Now() time.Time
}

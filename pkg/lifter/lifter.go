// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package lifter translates IL programs into textual target representations.
// Two implementations exist: the JavaScript lifter producing executable
// script text, and the FuzzIL lifter producing the canonical IL text form
// used for human inspection and round-trip testing.
//
// Lifting is deterministic: the same program and the same configuration
// always produce byte-identical text.
package lifter

import (
	"fmt"

	"github.com/JJHPhoto/fuzzilli/prog"
)

type Lifter interface {
	Lift(p *prog.Prog) ([]byte, error)
}

// UnsupportedOperationError means the program contains an operation the
// configured lifter has no rendering rule for, e.g. a construct requiring a
// newer language version than configured.
type UnsupportedOperationError struct {
	Op     prog.Op
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("cannot lift %v: %v", e.Op, e.Reason)
}

// UnbalancedBlockError is defensive: program validation must make it
// unreachable.
type UnbalancedBlockError struct {
	Op prog.Op
}

func (e *UnbalancedBlockError) Error() string {
	return fmt.Sprintf("unbalanced block marker %v in a validated program", e.Op)
}

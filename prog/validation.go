// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import (
	"errors"
	"fmt"
)

var (
	ErrDanglingReference = errors.New("dangling variable reference")
	ErrUnbalancedBlock   = errors.New("unbalanced block markers")
	ErrUnknownOperation  = errors.New("unknown operation")
)

// MalformedProgramError reports an invariant violation detected during
// program construction. Use errors.Is with the Err* sentinels to classify it.
type MalformedProgramError struct {
	Instr int // index of the offending instruction, -1 for the program as a whole
	Err   error
}

func (e *MalformedProgramError) Error() string {
	if e.Instr < 0 {
		return fmt.Sprintf("malformed program: %v", e.Err)
	}
	return fmt.Sprintf("malformed program: instruction #%v: %v", e.Instr, e.Err)
}

func (e *MalformedProgramError) Unwrap() error {
	return e.Err
}

// validate checks that every variable use is dominated by its definition and
// that the defining block still encloses the use site, that variables are
// numbered densely in definition order, and that Begin/End markers form a
// correctly paired bracket structure. Invalid programs are never repaired.
func (p *Prog) validate() error {
	type scope struct {
		begin Op
		vars  []Var
	}
	stack := []scope{{}} // stack[0] is the top-level pseudo scope
	var live []bool
	next := Var(0)

	fail := func(i int, err error) error {
		return &MalformedProgramError{Instr: i, Err: err}
	}
	define := func(i int, v Var) error {
		if v != next {
			return fail(i, fmt.Errorf("output %v breaks dense numbering, want v%v", v, next))
		}
		live = append(live, true)
		sc := &stack[len(stack)-1]
		sc.vars = append(sc.vars, v)
		next++
		return nil
	}

	for i := range p.Instrs {
		in := &p.Instrs[i]
		if in.Op >= opCount {
			return fail(i, fmt.Errorf("%w: tag %v", ErrUnknownOperation, uint16(in.Op)))
		}
		attrs := in.Op.Attrs()
		if attrs.inputs >= 0 && len(in.Inputs) != attrs.inputs {
			return fail(i, fmt.Errorf("%v has %v inputs, want %v", in.Op, len(in.Inputs), attrs.inputs))
		}
		if attrs.inputs < 0 && len(in.Inputs) < attrs.minIn {
			return fail(i, fmt.Errorf("%v has %v inputs, want at least %v", in.Op, len(in.Inputs), attrs.minIn))
		}
		if attrs.outputs >= 0 && len(in.Outputs) != attrs.outputs {
			return fail(i, fmt.Errorf("%v has %v outputs, want %v", in.Op, len(in.Outputs), attrs.outputs))
		}
		if attrs.outputs < 0 && len(in.Outputs) < attrs.minOut {
			return fail(i, fmt.Errorf("%v has %v outputs, want at least %v", in.Op, len(in.Outputs), attrs.minOut))
		}
		if table := OperatorTable(in.Op); table != nil && in.Aux >= uint64(len(table)) {
			return fail(i, fmt.Errorf("%w: %v operator index %v", ErrUnknownOperation, in.Op, in.Aux))
		}
		if attrs.aux != AuxData && len(in.AuxData) != 0 {
			return fail(i, fmt.Errorf("%v carries spurious aux data", in.Op))
		}
		for _, v := range in.Inputs {
			if v >= next || !live[v] {
				return fail(i, fmt.Errorf("%w: input %v", ErrDanglingReference, v))
			}
		}
		if in.Op == OpReturn {
			inFunc := false
			for _, sc := range stack[1:] {
				if sc.begin == OpBeginFunction {
					inFunc = true
					break
				}
			}
			if !inFunc {
				return fail(i, errors.New("return outside of a function body"))
			}
		}
		if in.Op.IsBlockEnd() {
			if len(stack) == 1 || !matchingBegin(in.Op, stack[len(stack)-1].begin) {
				return fail(i, fmt.Errorf("%w: %v does not close an open block", ErrUnbalancedBlock, in.Op))
			}
			for _, v := range stack[len(stack)-1].vars {
				live[v] = false
			}
			stack = stack[:len(stack)-1]
		}
		for _, v := range in.outerOutputs() {
			if err := define(i, v); err != nil {
				return err
			}
		}
		if in.Op.IsBlockBegin() {
			stack = append(stack, scope{begin: in.Op})
			for _, v := range in.Params() {
				if err := define(i, v); err != nil {
					return err
				}
			}
		}
	}
	if len(stack) != 1 {
		return &MalformedProgramError{Instr: -1,
			Err: fmt.Errorf("%w: %v block(s) left open", ErrUnbalancedBlock, len(stack)-1)}
	}
	p.nvars = int(next)
	return nil
}

// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package prog implements the FuzzIL program representation: a flat sequence
// of instructions over densely numbered variables, with block structure
// expressed by paired Begin/End marker instructions. Programs stay flat in
// memory; nesting is reconstructed transiently by lifters.
package prog

import (
	"bytes"
	"fmt"
)

// Var names a value produced by exactly one instruction (or bound as a block
// parameter). Variables are numbered densely in definition order.
type Var uint32

func (v Var) String() string {
	return fmt.Sprintf("v%v", uint32(v))
}

type Instr struct {
	Op      Op
	Inputs  []Var
	Outputs []Var
	Aux     uint64 // integer payload, meaning depends on Op (see AuxKind)
	AuxData []byte // byte payload (string literals, property names)
}

// Params returns the block parameters bound by a block-begin instruction.
// For BeginFunction, Outputs[0] is the function value visible in the
// enclosing scope and the rest are parameters scoped to the body.
func (in *Instr) Params() []Var {
	if in.Op == OpBeginFunction {
		return in.Outputs[1:]
	}
	return nil
}

// outerOutputs returns the outputs defined in the enclosing scope.
func (in *Instr) outerOutputs() []Var {
	if in.Op == OpBeginFunction {
		return in.Outputs[:1]
	}
	return in.Outputs
}

// Prog is an immutable, validated IL program.
// The only way to obtain one is NewProg or Deserialize.
type Prog struct {
	Instrs []Instr
	nvars  int
}

// NewProg validates instrs and wraps them into a program.
// It fails with a *MalformedProgramError if the instruction sequence violates
// the dominance, numbering or block-nesting invariants.
func NewProg(instrs []Instr) (*Prog, error) {
	p := &Prog{Instrs: instrs}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// NumVars returns the number of variables the program defines.
func (p *Prog) NumVars() int {
	return p.nvars
}

// Clone returns a deep copy of the program.
func (p *Prog) Clone() *Prog {
	instrs := make([]Instr, len(p.Instrs))
	for i, in := range p.Instrs {
		instrs[i] = Instr{
			Op:      in.Op,
			Inputs:  append([]Var{}, in.Inputs...),
			Outputs: append([]Var{}, in.Outputs...),
			Aux:     in.Aux,
			AuxData: append([]byte{}, in.AuxData...),
		}
	}
	return &Prog{Instrs: instrs, nvars: p.nvars}
}

// String generates a very compact program description (mostly for debug output).
func (p *Prog) String() string {
	buf := new(bytes.Buffer)
	for i, in := range p.Instrs {
		if i != 0 {
			fmt.Fprintf(buf, "-")
		}
		fmt.Fprintf(buf, "%v", in.Op)
	}
	return buf.String()
}

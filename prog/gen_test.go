// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import (
	"math"
	"math/rand"
)

// genProg builds a random valid program by tracking variable liveness and
// block nesting the same way lifters do. It is used to exercise the codec
// and the validator on inputs a hand-written table would never cover.
func genProg(rnd *rand.Rand, steps int) *Prog {
	g := &gen{rnd: rnd, scopes: [][]Var{nil}}
	for i := 0; i < steps; i++ {
		g.step()
	}
	for len(g.begins) != 0 {
		g.closeBlock()
	}
	p, err := NewProg(g.instrs)
	if err != nil {
		panic(err)
	}
	return p
}

type gen struct {
	rnd    *rand.Rand
	instrs []Instr
	next   Var
	scopes [][]Var // visible variables per open scope
	begins []Op
}

var genNames = []string{"a", "b", "length", "foo", "$x", "not an ident"}

func (g *gen) step() {
	vis := g.visible()
	n := g.rnd.Intn(10)
	switch {
	case len(vis) == 0 || n < 3:
		g.literal()
	case n < 6:
		g.expr(vis)
	case n == 6:
		g.stmt(vis)
	case n == 7 && len(g.begins) < 4:
		g.beginBlock(vis)
	case n == 8 && len(g.begins) != 0:
		g.endBlock()
	default:
		g.call(vis)
	}
}

func (g *gen) literal() {
	switch g.rnd.Intn(7) {
	case 0:
		g.emit(Instr{Op: OpLoadInt, Aux: g.rnd.Uint64(), Outputs: []Var{g.define()}})
	case 1:
		g.emit(Instr{Op: OpLoadFloat, Aux: math.Float64bits(g.rnd.NormFloat64()), Outputs: []Var{g.define()}})
	case 2:
		data := make([]byte, g.rnd.Intn(8))
		g.rnd.Read(data)
		g.emit(Instr{Op: OpLoadString, AuxData: data, Outputs: []Var{g.define()}})
	case 3:
		g.emit(Instr{Op: OpLoadBool, Aux: uint64(g.rnd.Intn(2)), Outputs: []Var{g.define()}})
	case 4:
		g.emit(Instr{Op: OpLoadUndefined, Outputs: []Var{g.define()}})
	case 5:
		g.emit(Instr{Op: OpLoadNull, Outputs: []Var{g.define()}})
	default:
		g.emit(Instr{Op: OpLoadBigInt, Aux: g.rnd.Uint64(), Outputs: []Var{g.define()}})
	}
}

func (g *gen) expr(vis []Var) {
	switch g.rnd.Intn(7) {
	case 0:
		g.emit(Instr{Op: OpBinary, Aux: uint64(g.rnd.Intn(len(BinaryOps))),
			Inputs: []Var{g.pick(vis), g.pick(vis)}, Outputs: []Var{g.define()}})
	case 1:
		g.emit(Instr{Op: OpUnary, Aux: uint64(g.rnd.Intn(len(UnaryOps))),
			Inputs: []Var{g.pick(vis)}, Outputs: []Var{g.define()}})
	case 2:
		g.emit(Instr{Op: OpCompare, Aux: uint64(g.rnd.Intn(len(CompareOps))),
			Inputs: []Var{g.pick(vis), g.pick(vis)}, Outputs: []Var{g.define()}})
	case 3:
		g.emit(Instr{Op: OpGetProp, AuxData: []byte(g.name()),
			Inputs: []Var{g.pick(vis)}, Outputs: []Var{g.define()}})
	case 4:
		g.emit(Instr{Op: OpGetElem,
			Inputs: []Var{g.pick(vis), g.pick(vis)}, Outputs: []Var{g.define()}})
	case 5:
		g.emit(Instr{Op: OpCreateObject, Outputs: []Var{g.define()}})
	default:
		args := make([]Var, g.rnd.Intn(4))
		for i := range args {
			args[i] = g.pick(vis)
		}
		g.emit(Instr{Op: OpCreateArray, Inputs: args, Outputs: []Var{g.define()}})
	}
}

func (g *gen) stmt(vis []Var) {
	switch {
	case g.inFunc() && g.rnd.Intn(4) == 0:
		g.emit(Instr{Op: OpReturn, Inputs: []Var{g.pick(vis)}})
	case g.rnd.Intn(2) == 0:
		g.emit(Instr{Op: OpSetProp, AuxData: []byte(g.name()),
			Inputs: []Var{g.pick(vis), g.pick(vis)}})
	default:
		g.emit(Instr{Op: OpSetElem,
			Inputs: []Var{g.pick(vis), g.pick(vis), g.pick(vis)}})
	}
}

func (g *gen) call(vis []Var) {
	args := make([]Var, 1+g.rnd.Intn(3))
	for i := range args {
		args[i] = g.pick(vis)
	}
	switch g.rnd.Intn(3) {
	case 0:
		g.emit(Instr{Op: OpCallFunction, Inputs: args, Outputs: []Var{g.define()}})
	case 1:
		g.emit(Instr{Op: OpCallMethod, AuxData: []byte(g.name()),
			Inputs: args, Outputs: []Var{g.define()}})
	default:
		g.emit(Instr{Op: OpConstruct, Inputs: args, Outputs: []Var{g.define()}})
	}
}

func (g *gen) beginBlock(vis []Var) {
	switch g.rnd.Intn(3) {
	case 0:
		g.emit(Instr{Op: OpBeginIf, Inputs: []Var{g.pick(vis)}})
		g.push(OpBeginIf)
	case 1:
		g.emit(Instr{Op: OpBeginWhile, Inputs: []Var{g.pick(vis)}})
		g.push(OpBeginWhile)
	default:
		outs := []Var{g.define()} // function value, visible in the outer scope
		g.push(OpBeginFunction)
		for i := g.rnd.Intn(3); i > 0; i-- {
			outs = append(outs, g.define())
		}
		g.instrs = append(g.instrs, Instr{Op: OpBeginFunction, Outputs: outs})
	}
}

func (g *gen) endBlock() {
	if g.begins[len(g.begins)-1] == OpBeginIf && g.rnd.Intn(2) == 0 {
		g.scopes = g.scopes[:len(g.scopes)-1]
		g.scopes = append(g.scopes, nil)
		g.begins[len(g.begins)-1] = OpBeginElse
		g.emit(Instr{Op: OpBeginElse})
		return
	}
	g.closeBlock()
}

func (g *gen) closeBlock() {
	var end Op
	switch g.begins[len(g.begins)-1] {
	case OpBeginIf, OpBeginElse:
		end = OpEndIf
	case OpBeginWhile:
		end = OpEndWhile
	case OpBeginFunction:
		end = OpEndFunction
	}
	g.scopes = g.scopes[:len(g.scopes)-1]
	g.begins = g.begins[:len(g.begins)-1]
	g.emit(Instr{Op: end})
}

func (g *gen) emit(in Instr) {
	g.instrs = append(g.instrs, in)
}

func (g *gen) define() Var {
	v := g.next
	g.next++
	g.scopes[len(g.scopes)-1] = append(g.scopes[len(g.scopes)-1], v)
	return v
}

func (g *gen) push(begin Op) {
	g.scopes = append(g.scopes, nil)
	g.begins = append(g.begins, begin)
}

func (g *gen) visible() []Var {
	var vis []Var
	for _, sc := range g.scopes {
		vis = append(vis, sc...)
	}
	return vis
}

func (g *gen) pick(vis []Var) Var {
	return vis[g.rnd.Intn(len(vis))]
}

func (g *gen) name() string {
	return genNames[g.rnd.Intn(len(genNames))]
}

func (g *gen) inFunc() bool {
	for _, begin := range g.begins {
		if begin == OpBeginFunction {
			return true
		}
	}
	return false
}

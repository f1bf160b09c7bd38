// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import "fmt"

// Op identifies an IL operation. The set of operations is closed,
// new operations may only be appended (the binary encoding stores raw tags).
type Op uint16

const (
	OpNop Op = iota
	OpLoadInt
	OpLoadFloat
	OpLoadString
	OpLoadBool
	OpLoadUndefined
	OpLoadNull
	OpLoadBigInt
	OpBinary
	OpUnary
	OpCompare
	OpDup
	OpCreateObject
	OpCreateArray
	OpGetProp
	OpSetProp
	OpGetElem
	OpSetElem
	OpCallFunction
	OpCallMethod
	OpConstruct
	OpReturn
	OpBeginIf
	OpBeginElse
	OpEndIf
	OpBeginWhile
	OpEndWhile
	OpBeginFunction
	OpEndFunction
	opCount
)

type opFlags uint8

const (
	opBlockBegin opFlags = 1 << iota
	opBlockEnd
	// opPure marks operations that evaluate without observable side effects,
	// the only ones a lifter may inline at the use site.
	opPure
)

// AuxKind says how an instruction's auxiliary payload is interpreted.
type AuxKind uint8

const (
	AuxNone  AuxKind = iota
	AuxInt           // Aux holds an integer (literal value or operator index)
	AuxFloat         // Aux holds math.Float64bits of the value
	AuxData          // AuxData holds raw bytes (string literal, property name)
)

// AuxKindOf returns the auxiliary payload kind of op.
func AuxKindOf(op Op) AuxKind {
	return op.Attrs().aux
}

type opAttrs struct {
	name    string
	inputs  int // -1: variadic, minIn applies
	outputs int // -1: variadic (block parameters), minOut applies
	minIn   int
	minOut  int
	flags   opFlags
	aux     AuxKind
}

var opTable = [opCount]opAttrs{
	OpNop:           {name: "Nop", flags: opPure},
	OpLoadInt:       {name: "LoadInt", outputs: 1, flags: opPure, aux: AuxInt},
	OpLoadFloat:     {name: "LoadFloat", outputs: 1, flags: opPure, aux: AuxFloat},
	OpLoadString:    {name: "LoadString", outputs: 1, flags: opPure, aux: AuxData},
	OpLoadBool:      {name: "LoadBool", outputs: 1, flags: opPure, aux: AuxInt},
	OpLoadUndefined: {name: "LoadUndefined", outputs: 1, flags: opPure},
	OpLoadNull:      {name: "LoadNull", outputs: 1, flags: opPure},
	OpLoadBigInt:    {name: "LoadBigInt", outputs: 1, flags: opPure, aux: AuxInt},
	OpBinary:        {name: "Binary", inputs: 2, outputs: 1, flags: opPure, aux: AuxInt},
	OpUnary:         {name: "Unary", inputs: 1, outputs: 1, flags: opPure, aux: AuxInt},
	OpCompare:       {name: "Compare", inputs: 2, outputs: 1, flags: opPure, aux: AuxInt},
	OpDup:           {name: "Dup", inputs: 1, outputs: 1},
	OpCreateObject:  {name: "CreateObject", outputs: 1},
	OpCreateArray:   {name: "CreateArray", inputs: -1, outputs: 1},
	OpGetProp:       {name: "GetProp", inputs: 1, outputs: 1, aux: AuxData},
	OpSetProp:       {name: "SetProp", inputs: 2, aux: AuxData},
	OpGetElem:       {name: "GetElem", inputs: 2, outputs: 1},
	OpSetElem:       {name: "SetElem", inputs: 3},
	OpCallFunction:  {name: "CallFunction", inputs: -1, minIn: 1, outputs: 1},
	OpCallMethod:    {name: "CallMethod", inputs: -1, minIn: 1, outputs: 1, aux: AuxData},
	OpConstruct:     {name: "Construct", inputs: -1, minIn: 1, outputs: 1},
	OpReturn:        {name: "Return", inputs: 1},
	OpBeginIf:       {name: "BeginIf", inputs: 1, flags: opBlockBegin},
	OpBeginElse:     {name: "BeginElse", flags: opBlockBegin | opBlockEnd},
	OpEndIf:         {name: "EndIf", flags: opBlockEnd},
	OpBeginWhile:    {name: "BeginWhile", inputs: 1, flags: opBlockBegin},
	OpEndWhile:      {name: "EndWhile", flags: opBlockEnd},
	OpBeginFunction: {name: "BeginFunction", outputs: -1, minOut: 1, flags: opBlockBegin},
	OpEndFunction:   {name: "EndFunction", flags: opBlockEnd},
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, opCount)
	for op := Op(0); op < opCount; op++ {
		m[opTable[op].name] = op
	}
	return m
}()

func (op Op) Attrs() opAttrs {
	if op >= opCount {
		return opAttrs{name: fmt.Sprintf("op%v", uint16(op))}
	}
	return opTable[op]
}

func (op Op) String() string {
	return op.Attrs().name
}

func (op Op) IsBlockBegin() bool { return op.Attrs().flags&opBlockBegin != 0 }
func (op Op) IsBlockEnd() bool   { return op.Attrs().flags&opBlockEnd != 0 }
func (op Op) Pure() bool         { return op.Attrs().flags&opPure != 0 }

// Operator tables for OpBinary/OpUnary/OpCompare. The Aux field of these
// instructions indexes into the corresponding table.
var (
	BinaryOps  = []string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", "&&", "||", "**"}
	UnaryOps   = []string{"-", "+", "!", "~", "typeof", "void"}
	CompareOps = []string{"==", "!=", "===", "!==", "<", "<=", ">", ">="}
)

// BinaryExp is the index of the "**" operator, which needs ES2016+.
var BinaryExp = func() int {
	for i, op := range BinaryOps {
		if op == "**" {
			return i
		}
	}
	panic("no ** operator")
}()

// OperatorTable returns the operator name table for op, or nil if the
// operation does not take an operator index.
func OperatorTable(op Op) []string {
	switch op {
	case OpBinary:
		return BinaryOps
	case OpUnary:
		return UnaryOps
	case OpCompare:
		return CompareOps
	}
	return nil
}

// matchingBegin reports whether end may close a block opened by begin.
// BeginElse both closes the then-branch and opens the else-branch.
func matchingBegin(end, begin Op) bool {
	switch end {
	case OpBeginElse:
		return begin == OpBeginIf
	case OpEndIf:
		return begin == OpBeginIf || begin == OpBeginElse
	case OpEndWhile:
		return begin == OpBeginWhile
	case OpEndFunction:
		return begin == OpBeginFunction
	}
	return false
}

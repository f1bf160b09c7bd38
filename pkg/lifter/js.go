// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package lifter

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JJHPhoto/fuzzilli/prog"
)

// ESVersion is the ECMAScript edition the generated code may use.
type ESVersion int

const (
	ES2015 ESVersion = 2015
	ES2016 ESVersion = 2016
	ES2020 ESVersion = 2020
)

// Options control various aspects of script generation.
type Options struct {
	// Prefix/Suffix frame the emitted program body (e.g. harness setup and
	// result reporting). Both are emitted verbatim.
	Prefix string
	Suffix string
	// Inline substitutes pure, single-use expressions at their use site
	// instead of binding them to a named constant.
	Inline bool
	// Version gates which syntax constructs may be emitted.
	// Zero means ES2015.
	Version ESVersion
}

// Check checks if the opts combination is valid or not.
// Invalid options must not be passed to NewJS.
func (opts Options) Check() error {
	if opts.Version != 0 && opts.Version < ES2015 {
		return fmt.Errorf("unsupported ECMAScript version %v", int(opts.Version))
	}
	return nil
}

// JS lifts programs to JavaScript source text.
type JS struct {
	opts Options
}

func NewJS(opts Options) (*JS, error) {
	if err := opts.Check(); err != nil {
		return nil, err
	}
	if opts.Version == 0 {
		opts.Version = ES2015
	}
	return &JS{opts: opts}, nil
}

// opMinVersion lists operations gated on a newer edition than ES2015.
var opMinVersion = map[prog.Op]ESVersion{
	prog.OpLoadBigInt: ES2020,
}

func (js *JS) Lift(p *prog.Prog) ([]byte, error) {
	ctx := &jsCtx{
		opts: js.opts,
		expr: make([]string, p.NumVars()),
		uses: make([]int, p.NumVars()),
	}
	for i := range p.Instrs {
		for _, v := range p.Instrs[i].Inputs {
			ctx.uses[v]++
		}
	}
	for i := range p.Instrs {
		if err := ctx.lift(&p.Instrs[i]); err != nil {
			return nil, err
		}
	}
	if ctx.indent != 0 {
		return nil, &UnbalancedBlockError{Op: p.Instrs[len(p.Instrs)-1].Op}
	}
	out := new(bytes.Buffer)
	writeFramed(out, ctx.opts.Prefix)
	writeFramed(out, strings.TrimSpace(ctx.w.String()))
	writeFramed(out, ctx.opts.Suffix)
	return out.Bytes(), nil
}

func writeFramed(out *bytes.Buffer, s string) {
	if s == "" {
		return
	}
	out.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		out.WriteByte('\n')
	}
}

type jsCtx struct {
	opts   Options
	w      bytes.Buffer
	indent int
	expr   []string // variable -> current textual representation
	uses   []int    // static use counts, inlining is single-use only
}

func (ctx *jsCtx) emit(format string, args ...interface{}) {
	for i := 0; i < ctx.indent; i++ {
		ctx.w.WriteString("    ")
	}
	fmt.Fprintf(&ctx.w, format, args...)
	ctx.w.WriteByte('\n')
}

// bind emits a named constant definition for v.
func (ctx *jsCtx) bind(v prog.Var, e string) {
	ctx.expr[v] = v.String()
	ctx.emit("const %v = %v;", v, e)
}

// value records the expression computing v. Pure single-use expressions are
// inlined at the use site under the inlining policy; everything else (and in
// particular every producer with multiple consumers) is bound to a named
// constant so that side effects are neither reordered nor duplicated.
func (ctx *jsCtx) value(in *prog.Instr, e string, parens bool) {
	v := in.Outputs[0]
	if ctx.opts.Inline && in.Op.Pure() && ctx.uses[v] == 1 {
		if parens {
			e = "(" + e + ")"
		}
		ctx.expr[v] = e
		return
	}
	ctx.bind(v, e)
}

func (ctx *jsCtx) in(v prog.Var) string {
	return ctx.expr[v]
}

func (ctx *jsCtx) args(vars []prog.Var) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = ctx.expr[v]
	}
	return strings.Join(parts, ", ")
}

func (ctx *jsCtx) lift(in *prog.Instr) error {
	if need, ok := opMinVersion[in.Op]; ok && ctx.opts.Version < need {
		return &UnsupportedOperationError{Op: in.Op,
			Reason: fmt.Sprintf("requires ES%v, target is ES%v", int(need), int(ctx.opts.Version))}
	}
	switch in.Op {
	case prog.OpNop:
	case prog.OpLoadInt:
		ctx.value(in, strconv.FormatInt(int64(in.Aux), 10), false)
	case prog.OpLoadFloat:
		ctx.value(in, jsFloat(math.Float64frombits(in.Aux)), false)
	case prog.OpLoadString:
		ctx.value(in, jsQuote(string(in.AuxData)), false)
	case prog.OpLoadBool:
		ctx.value(in, strconv.FormatBool(in.Aux != 0), false)
	case prog.OpLoadUndefined:
		ctx.value(in, "undefined", false)
	case prog.OpLoadNull:
		ctx.value(in, "null", false)
	case prog.OpLoadBigInt:
		ctx.value(in, strconv.FormatInt(int64(in.Aux), 10)+"n", false)
	case prog.OpBinary:
		op := prog.BinaryOps[in.Aux]
		if op == "**" && ctx.opts.Version < ES2016 {
			return &UnsupportedOperationError{Op: in.Op,
				Reason: fmt.Sprintf("operator ** requires ES%v, target is ES%v", int(ES2016), int(ctx.opts.Version))}
		}
		ctx.value(in, fmt.Sprintf("%v %v %v", ctx.in(in.Inputs[0]), op, ctx.in(in.Inputs[1])), true)
	case prog.OpUnary:
		ctx.value(in, fmt.Sprintf("%v(%v)", prog.UnaryOps[in.Aux], ctx.in(in.Inputs[0])), true)
	case prog.OpCompare:
		ctx.value(in, fmt.Sprintf("%v %v %v", ctx.in(in.Inputs[0]), prog.CompareOps[in.Aux], ctx.in(in.Inputs[1])), true)
	case prog.OpDup:
		ctx.bind(in.Outputs[0], ctx.in(in.Inputs[0]))
	case prog.OpCreateObject:
		ctx.bind(in.Outputs[0], "{}")
	case prog.OpCreateArray:
		ctx.bind(in.Outputs[0], "["+ctx.args(in.Inputs)+"]")
	case prog.OpGetProp:
		ctx.bind(in.Outputs[0], ctx.in(in.Inputs[0])+propAccess(in.AuxData))
	case prog.OpSetProp:
		ctx.emit("%v%v = %v;", ctx.in(in.Inputs[0]), propAccess(in.AuxData), ctx.in(in.Inputs[1]))
	case prog.OpGetElem:
		ctx.bind(in.Outputs[0], fmt.Sprintf("%v[%v]", ctx.in(in.Inputs[0]), ctx.in(in.Inputs[1])))
	case prog.OpSetElem:
		ctx.emit("%v[%v] = %v;", ctx.in(in.Inputs[0]), ctx.in(in.Inputs[1]), ctx.in(in.Inputs[2]))
	case prog.OpCallFunction:
		ctx.bind(in.Outputs[0], fmt.Sprintf("%v(%v)", ctx.in(in.Inputs[0]), ctx.args(in.Inputs[1:])))
	case prog.OpCallMethod:
		ctx.bind(in.Outputs[0], fmt.Sprintf("%v%v(%v)",
			ctx.in(in.Inputs[0]), propAccess(in.AuxData), ctx.args(in.Inputs[1:])))
	case prog.OpConstruct:
		ctx.bind(in.Outputs[0], fmt.Sprintf("new %v(%v)", ctx.in(in.Inputs[0]), ctx.args(in.Inputs[1:])))
	case prog.OpReturn:
		ctx.emit("return %v;", ctx.in(in.Inputs[0]))
	case prog.OpBeginIf:
		ctx.emit("if (%v) {", ctx.in(in.Inputs[0]))
		ctx.indent++
	case prog.OpBeginElse:
		if ctx.indent == 0 {
			return &UnbalancedBlockError{Op: in.Op}
		}
		ctx.indent--
		ctx.emit("} else {")
		ctx.indent++
	case prog.OpEndIf, prog.OpEndWhile, prog.OpEndFunction:
		if ctx.indent == 0 {
			return &UnbalancedBlockError{Op: in.Op}
		}
		ctx.indent--
		ctx.emit("}")
	case prog.OpBeginWhile:
		ctx.emit("while (%v) {", ctx.in(in.Inputs[0]))
		ctx.indent++
	case prog.OpBeginFunction:
		fn := in.Outputs[0]
		ctx.expr[fn] = fn.String()
		params := make([]string, len(in.Params()))
		for i, v := range in.Params() {
			ctx.expr[v] = v.String()
			params[i] = v.String()
		}
		ctx.emit("function %v(%v) {", fn, strings.Join(params, ", "))
		ctx.indent++
	default:
		return &UnsupportedOperationError{Op: in.Op, Reason: "no rendering rule"}
	}
	return nil
}

// jsFloat renders f as a valid JavaScript numeric literal.
func jsFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// propAccess renders a property accessor, using dot syntax when the name is
// a valid identifier and a quoted index expression otherwise.
func propAccess(name []byte) string {
	s := string(name)
	if isJSIdent(s) {
		return "." + s
	}
	return "[" + jsQuote(s) + "]"
}

// jsQuote renders s as a double-quoted JavaScript string literal.
// Non-printable bytes use \xNN escapes; astral runes use surrogate pairs
// (JavaScript has no \U escape).
func jsQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&b, "\\x%02x", s[i])
			i++
			continue
		}
		i += size
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&b, "\\x%02x", r)
		case r < 0x10000:
			fmt.Fprintf(&b, "\\u%04x", r)
		default:
			r -= 0x10000
			fmt.Fprintf(&b, "\\u%04x\\u%04x", 0xd800+(r>>10), 0xdc00+(r&0x3ff))
		}
	}
	b.WriteByte('"')
	return b.String()
}

func isJSIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		ok := c == '_' || c == '$' ||
			c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
			i > 0 && c >= '0' && c <= '9'
		if !ok {
			return false
		}
	}
	return true
}

// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Parse reads the canonical IL text form (one instruction per line, as
// produced by the FuzzIL lifter) back into a validated program.
func Parse(data []byte) (*Prog, error) {
	p := &parser{r: bufio.NewScanner(bytes.NewReader(data))}
	var instrs []Instr
	for p.Scan() {
		if p.EOF() || p.Char() == '#' {
			continue
		}
		in, err := parseInstr(p)
		if err != nil {
			return nil, err
		}
		if !p.EOF() {
			return nil, fmt.Errorf("trailing data (line #%v)", p.l)
		}
		instrs = append(instrs, in)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return NewProg(instrs)
}

func parseInstr(p *parser) (Instr, error) {
	var in Instr
	name := p.Ident()
	if p.Char() == '=' || p.Char() == ',' {
		// The identifiers parsed so far are outputs.
		v, err := parseVar(p, name)
		if err != nil {
			return in, err
		}
		in.Outputs = append(in.Outputs, v)
		for p.Char() == ',' {
			p.Parse(',')
			v, err := parseVar(p, p.Ident())
			if err != nil {
				return in, err
			}
			in.Outputs = append(in.Outputs, v)
		}
		p.Parse('=')
		name = p.Ident()
	}
	op, ok := opByName[name]
	if !ok {
		return in, fmt.Errorf("unknown operation %q (line #%v)", name, p.l)
	}
	in.Op = op
	p.Parse('(')
	first := true
	comma := func() {
		if !first {
			p.Parse(',')
		}
		first = false
	}
	if table := OperatorTable(op); table != nil {
		comma()
		operator := p.Quoted('\'')
		idx := -1
		for i, s := range table {
			if s == operator {
				idx = i
				break
			}
		}
		if idx < 0 {
			return in, fmt.Errorf("unknown %v operator %q (line #%v)", op, operator, p.l)
		}
		in.Aux = uint64(idx)
	} else {
		switch op.Attrs().aux {
		case AuxInt:
			comma()
			v, err := strconv.ParseInt(p.Token(), 10, 64)
			if err != nil {
				return in, fmt.Errorf("bad integer literal (line #%v): %v", p.l, err)
			}
			in.Aux = uint64(v)
		case AuxFloat:
			comma()
			v, err := strconv.ParseFloat(p.Token(), 64)
			if err != nil {
				return in, fmt.Errorf("bad float literal (line #%v): %v", p.l, err)
			}
			in.Aux = math.Float64bits(v)
		case AuxData:
			comma()
			data, err := hex.DecodeString(p.Quoted('"'))
			if err != nil {
				return in, fmt.Errorf("bad data literal (line #%v): %v", p.l, err)
			}
			in.AuxData = data
		}
	}
	for p.e == nil && p.Char() != ')' {
		comma()
		v, err := parseVar(p, p.Ident())
		if err != nil {
			return in, err
		}
		in.Inputs = append(in.Inputs, v)
	}
	p.Parse(')')
	return in, p.Err()
}

func parseVar(p *parser, s string) (Var, error) {
	if !strings.HasPrefix(s, "v") {
		return 0, fmt.Errorf("%q is not a variable (line #%v)", s, p.l)
	}
	v, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad variable %q (line #%v): %v", s, p.l, err)
	}
	return Var(v), nil
}

type parser struct {
	r *bufio.Scanner
	s string
	i int
	l int
	e error
}

func (p *parser) Scan() bool {
	if p.e != nil {
		return false
	}
	if !p.r.Scan() {
		p.e = p.r.Err()
		return false
	}
	p.s = p.r.Text()
	p.i = 0
	p.l++
	p.SkipWs()
	return true
}

func (p *parser) Err() error {
	return p.e
}

func (p *parser) EOF() bool {
	return p.i == len(p.s)
}

func (p *parser) Char() byte {
	if p.e != nil {
		return 0
	}
	if p.EOF() {
		p.failf("unexpected eof")
		return 0
	}
	return p.s[p.i]
}

func (p *parser) Parse(ch byte) {
	if p.e != nil {
		return
	}
	if p.EOF() {
		p.failf("want %q, got EOF", string(ch))
		return
	}
	if p.s[p.i] != ch {
		p.failf("want %q, got %q", string(ch), string(p.s[p.i]))
		return
	}
	p.i++
	p.SkipWs()
}

func (p *parser) SkipWs() {
	for p.i < len(p.s) && (p.s[p.i] == ' ' || p.s[p.i] == '\t') {
		p.i++
	}
}

func (p *parser) Ident() string {
	i := p.i
	for p.i < len(p.s) &&
		(p.s[p.i] >= 'a' && p.s[p.i] <= 'z' ||
			p.s[p.i] >= 'A' && p.s[p.i] <= 'Z' ||
			p.s[p.i] >= '0' && p.s[p.i] <= '9' ||
			p.s[p.i] == '_' || p.s[p.i] == '$') {
		p.i++
	}
	if i == p.i {
		p.failf("failed to parse identifier at pos %v", i)
		return ""
	}
	s := p.s[i:p.i]
	p.SkipWs()
	return s
}

// Token reads an immediate literal: everything up to the next ',' or ')'.
func (p *parser) Token() string {
	i := p.i
	for p.i < len(p.s) && p.s[p.i] != ',' && p.s[p.i] != ')' && p.s[p.i] != ' ' {
		p.i++
	}
	if i == p.i {
		p.failf("failed to parse literal at pos %v", i)
		return ""
	}
	s := p.s[i:p.i]
	p.SkipWs()
	return s
}

// Quoted reads a q-delimited string (no escaping, payloads are hex-encoded).
func (p *parser) Quoted(q byte) string {
	p.Parse(q)
	i := p.i
	for p.i < len(p.s) && p.s[p.i] != q {
		p.i++
	}
	if p.i == len(p.s) {
		p.failf("unterminated %q literal", string(q))
		return ""
	}
	s := p.s[i:p.i]
	p.i++
	p.SkipWs()
	return s
}

func (p *parser) failf(msg string, args ...interface{}) {
	p.e = fmt.Errorf("%v\nline #%v: %v", fmt.Sprintf(msg, args...), p.l, p.s)
}

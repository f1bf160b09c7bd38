// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package lifter

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JJHPhoto/fuzzilli/prog"
)

// FuzzIL lifts programs to the canonical IL text: one line per instruction,
// lossless, re-parsed by prog.Parse. It is a pure function of the program,
// there is no configuration.
type FuzzIL struct{}

func (FuzzIL) Lift(p *prog.Prog) ([]byte, error) {
	buf := new(bytes.Buffer)
	indent := 0
	for i := range p.Instrs {
		in := &p.Instrs[i]
		if in.Op.IsBlockEnd() {
			if indent == 0 {
				return nil, &UnbalancedBlockError{Op: in.Op}
			}
			indent--
		}
		for j := 0; j < indent; j++ {
			buf.WriteString("  ")
		}
		if in.Op.IsBlockBegin() {
			indent++
		}
		writeInstr(buf, in)
	}
	return buf.Bytes(), nil
}

func writeInstr(buf *bytes.Buffer, in *prog.Instr) {
	if len(in.Outputs) != 0 {
		outs := make([]string, len(in.Outputs))
		for i, v := range in.Outputs {
			outs[i] = v.String()
		}
		fmt.Fprintf(buf, "%v = ", strings.Join(outs, ", "))
	}
	fmt.Fprintf(buf, "%v(", in.Op)
	args := auxText(in)
	for _, v := range in.Inputs {
		args = append(args, v.String())
	}
	fmt.Fprintf(buf, "%v)\n", strings.Join(args, ", "))
}

func auxText(in *prog.Instr) []string {
	if table := prog.OperatorTable(in.Op); table != nil {
		return []string{"'" + table[in.Aux] + "'"}
	}
	switch prog.AuxKindOf(in.Op) {
	case prog.AuxInt:
		return []string{strconv.FormatInt(int64(in.Aux), 10)}
	case prog.AuxFloat:
		return []string{strconv.FormatFloat(math.Float64frombits(in.Aux), 'g', -1, 64)}
	case prog.AuxData:
		return []string{`"` + hex.EncodeToString(in.AuxData) + `"`}
	}
	return nil
}

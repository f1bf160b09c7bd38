// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Binary serialization of programs. The format is the corpus wire format:
// it must stay byte-stable within a major version. Each instruction carries
// an explicit metadata length so that decoders can skip fields appended by
// newer minor versions; a major version bump is a hard incompatibility.
package prog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	encodingMagic = uint32(0x4c495a46) // "FZIL"
	MajorVersion  = 1
	MinorVersion  = 0
)

var (
	ErrTruncatedInput     = errors.New("truncated input")
	ErrUnknownVersion     = errors.New("unknown format version")
	ErrInvalidInstruction = errors.New("invalid instruction")
)

// DecodeError reports corrupt or incompatible serialized bytes.
// Use errors.Is with the Err* sentinels to classify it.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode program: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Serialize encodes the program into the versioned binary wire format.
// The encoding is deterministic: equal programs serialize to equal bytes.
func (p *Prog) Serialize() []byte {
	buf := make([]byte, 0, 16+16*len(p.Instrs))
	buf = binary.LittleEndian.AppendUint32(buf, encodingMagic)
	buf = append(buf, MajorVersion, MinorVersion)
	buf = binary.AppendUvarint(buf, uint64(len(p.Instrs)))
	for i := range p.Instrs {
		buf = appendInstr(buf, &p.Instrs[i])
	}
	return buf
}

func appendInstr(buf []byte, in *Instr) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(in.Op))
	var flags byte
	if in.Op.IsBlockBegin() {
		flags |= 1
	}
	if in.Op.IsBlockEnd() {
		flags |= 2
	}
	buf = append(buf, flags)
	buf = binary.AppendUvarint(buf, uint64(len(in.Inputs)))
	for _, v := range in.Inputs {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	buf = binary.AppendUvarint(buf, uint64(len(in.Outputs)))
	for _, v := range in.Outputs {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	var meta []byte
	switch in.Op.Attrs().aux {
	case AuxInt, AuxFloat:
		meta = binary.LittleEndian.AppendUint64(nil, in.Aux)
	case AuxData:
		meta = in.AuxData
	}
	buf = binary.AppendUvarint(buf, uint64(len(meta)))
	return append(buf, meta...)
}

// Deserialize decodes data and re-validates all program invariants, so
// corrupt or adversarial bytes can never produce an invalid in-memory
// program. It fails with a *DecodeError.
func Deserialize(data []byte) (*Prog, error) {
	d := &decoder{data: data}
	if magic := d.uint32(); magic != encodingMagic {
		return nil, d.fail(fmt.Errorf("%w: bad magic 0x%x", ErrInvalidInstruction, magic))
	}
	major, minor := d.byte(), d.byte()
	if d.err == nil && major != MajorVersion {
		return nil, d.fail(fmt.Errorf("%w: major %v, handle %v", ErrUnknownVersion, major, MajorVersion))
	}
	_ = minor // newer minor versions only append instruction metadata
	n := d.uvarint()
	if d.err == nil && n > uint64(len(d.data)) {
		// An instruction takes multiple bytes, so this count cannot be right.
		return nil, d.fail(fmt.Errorf("%w: instruction count %v", ErrTruncatedInput, n))
	}
	instrs := make([]Instr, 0, n)
	for i := uint64(0); i < n && d.err == nil; i++ {
		instrs = append(instrs, d.instr())
	}
	if d.err != nil {
		return nil, &DecodeError{Err: d.err}
	}
	if d.pos != len(d.data) {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v trailing bytes", ErrInvalidInstruction, len(d.data)-d.pos)}
	}
	p, err := NewProg(instrs)
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrInvalidInstruction, err)}
	}
	return p, nil
}

type decoder struct {
	data []byte
	pos  int
	err  error
}

func (d *decoder) fail(err error) *DecodeError {
	if d.err == nil {
		d.err = err
	}
	return &DecodeError{Err: d.err}
}

func (d *decoder) byte() byte {
	if d.err != nil {
		return 0
	}
	if d.pos >= len(d.data) {
		d.err = ErrTruncatedInput
		return 0
	}
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *decoder) uint32() uint32 {
	if d.err != nil {
		return 0
	}
	if d.pos+4 > len(d.data) {
		d.err = ErrTruncatedInput
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) uint16() uint16 {
	if d.err != nil {
		return 0
	}
	if d.pos+2 > len(d.data) {
		d.err = ErrTruncatedInput
		return 0
	}
	v := binary.LittleEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.data[d.pos:])
	if n <= 0 {
		d.err = ErrTruncatedInput
		return 0
	}
	d.pos += n
	return v
}

func (d *decoder) bytes(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.data)-d.pos) {
		d.err = ErrTruncatedInput
		return nil
	}
	v := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return v
}

func (d *decoder) vars(what string) []Var {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.data)-d.pos) {
		d.err = fmt.Errorf("%w: %v count %v", ErrTruncatedInput, what, n)
		return nil
	}
	vars := make([]Var, 0, n)
	for i := uint64(0); i < n; i++ {
		v := d.uvarint()
		if v > math.MaxUint32 {
			d.err = fmt.Errorf("%w: %v id %v", ErrInvalidInstruction, what, v)
			return nil
		}
		vars = append(vars, Var(v))
	}
	return vars
}

func (d *decoder) instr() Instr {
	in := Instr{Op: Op(d.uint16())}
	flags := d.byte()
	if d.err == nil && in.Op < opCount {
		var want byte
		if in.Op.IsBlockBegin() {
			want |= 1
		}
		if in.Op.IsBlockEnd() {
			want |= 2
		}
		if flags != want {
			d.err = fmt.Errorf("%w: %v has flags 0x%x, want 0x%x", ErrInvalidInstruction, in.Op, flags, want)
			return in
		}
	}
	in.Inputs = d.vars("input")
	in.Outputs = d.vars("output")
	meta := d.bytes(d.uvarint())
	if d.err != nil {
		return in
	}
	// Consume the metadata fields this version understands,
	// ignore anything a newer minor version may have appended.
	switch in.Op.Attrs().aux {
	case AuxInt, AuxFloat:
		if len(meta) < 8 {
			d.err = fmt.Errorf("%w: %v metadata too short", ErrInvalidInstruction, in.Op)
			return in
		}
		in.Aux = binary.LittleEndian.Uint64(meta)
	case AuxData:
		in.AuxData = append([]byte{}, meta...)
	}
	return in
}

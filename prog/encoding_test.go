// Copyright 2025 fuzzilli project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package prog

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JJHPhoto/fuzzilli/pkg/testutil"
)

func TestSerializeRoundTrip(t *testing.T) {
	rnd := rand.New(testutil.RandSource(t))
	for i := 0; i < testutil.IterCount(); i++ {
		p := genProg(rnd, rnd.Intn(40))
		data := p.Serialize()
		got, err := Deserialize(data)
		require.NoError(t, err)
		if diff := cmp.Diff(p.Instrs, got.Instrs, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("program changed after a serialization round-trip:\n%v", diff)
		}
		assert.Equal(t, p.NumVars(), got.NumVars())
	}
}

func TestSerializeDeterministic(t *testing.T) {
	rnd := rand.New(testutil.RandSource(t))
	for i := 0; i < testutil.IterCount()/10; i++ {
		p := genProg(rnd, 20)
		data := p.Serialize()
		assert.Equal(t, data, p.Serialize())
		assert.Equal(t, data, p.Clone().Serialize())
	}
}

func TestDeserializeErrors(t *testing.T) {
	valid := mustProg(t, []Instr{
		{Op: OpLoadInt, Aux: 42, Outputs: []Var{0}},
		{Op: OpBeginIf, Inputs: []Var{0}},
		{Op: OpEndIf},
	}).Serialize()
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "empty input",
			data: nil,
			want: ErrTruncatedInput,
		},
		{
			name: "bad magic",
			data: append([]byte{'J', 'U', 'N', 'K'}, valid[4:]...),
			want: ErrInvalidInstruction,
		},
		{
			name: "unsupported major version",
			data: patch(valid, 4, MajorVersion+1),
			want: ErrUnknownVersion,
		},
		{
			name: "truncated instruction",
			data: valid[:len(valid)-3],
			want: ErrTruncatedInput,
		},
		{
			name: "trailing bytes",
			data: append(append([]byte{}, valid...), 0xde, 0xad),
			want: ErrInvalidInstruction,
		},
		{
			name: "block flags mismatch",
			// The first instruction is LoadInt, its flags byte must be 0.
			data: patch(valid, 9, 1),
			want: ErrInvalidInstruction,
		},
		{
			name: "absurd instruction count",
			data: binary.AppendUvarint(append([]byte{}, valid[:6]...), 1<<40),
			want: ErrTruncatedInput,
		},
		{
			name: "unknown op tag",
			data: rawInstr(999, nil, nil, nil),
			want: ErrInvalidInstruction,
		},
		{
			name: "decoded program fails validation",
			data: rawInstr(uint16(OpReturn), []Var{0}, nil, nil),
			want: ErrInvalidInstruction,
		},
		{
			name: "metadata too short",
			data: rawInstr(uint16(OpLoadInt), nil, []Var{0}, []byte{1, 2, 3}),
			want: ErrInvalidInstruction,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Deserialize(test.data)
			require.Error(t, err)
			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
			assert.ErrorIs(t, err, test.want)
		})
	}
}

// A decoder must tolerate instruction metadata appended by a newer minor
// version of the format: the extra bytes are skipped, the known prefix is
// interpreted as usual.
func TestDeserializeNewerMinor(t *testing.T) {
	meta := binary.LittleEndian.AppendUint64(nil, 42)
	meta = append(meta, 0xca, 0xfe, 0xba, 0xbe) // a field this version does not know
	data := header(MajorVersion, MinorVersion+1, 1)
	data = appendRawInstr(data, uint16(OpLoadInt), nil, []Var{0}, meta)
	p, err := Deserialize(data)
	require.NoError(t, err)
	require.Len(t, p.Instrs, 1)
	assert.Equal(t, uint64(42), p.Instrs[0].Aux)
}

func mustProg(t *testing.T, instrs []Instr) *Prog {
	p, err := NewProg(instrs)
	require.NoError(t, err)
	return p
}

func patch(data []byte, pos int, val byte) []byte {
	out := append([]byte{}, data...)
	out[pos] = val
	return out
}

func header(major, minor byte, instrs uint64) []byte {
	data := binary.LittleEndian.AppendUint32(nil, encodingMagic)
	data = append(data, major, minor)
	return binary.AppendUvarint(data, instrs)
}

func rawInstr(op uint16, inputs, outputs []Var, meta []byte) []byte {
	return appendRawInstr(header(MajorVersion, MinorVersion, 1), op, inputs, outputs, meta)
}

func appendRawInstr(data []byte, op uint16, inputs, outputs []Var, meta []byte) []byte {
	data = binary.LittleEndian.AppendUint16(data, op)
	var flags byte
	if Op(op) < opCount {
		if Op(op).IsBlockBegin() {
			flags |= 1
		}
		if Op(op).IsBlockEnd() {
			flags |= 2
		}
	}
	data = append(data, flags)
	data = binary.AppendUvarint(data, uint64(len(inputs)))
	for _, v := range inputs {
		data = binary.AppendUvarint(data, uint64(v))
	}
	data = binary.AppendUvarint(data, uint64(len(outputs)))
	for _, v := range outputs {
		data = binary.AppendUvarint(data, uint64(v))
	}
	data = binary.AppendUvarint(data, uint64(len(meta)))
	return append(data, meta...)
}

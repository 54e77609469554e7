package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"lattice/pkg/value"
)

// BCNK is the binary chunk-cache format of spec.md §4.3:
//
//	magic "BCNK"(4) | version u8 | chunk
//
// where each chunk is
//
//	name_len u32 | name | register_count u32 | param_count u32
//	| is_async u8 | reserves_this u8 | const_count u32 | constants
//	| instr_count u32 | instructions | nested_count u32 | nested chunks
//	| upvalue_count u32 | upvalues (is_local u8, index u32)
//
// Instruction source positions are not encoded. Nested function chunks
// are embedded inline, depth-first, immediately after their parent's
// instruction stream (Open Question Decision #2
// in SPEC_FULL.md) rather than written to a side table, so a whole
// chunk tree round-trips through one contiguous byte slice.
const (
	bcnkMagic   = "BCNK"
	bcnkVersion = 1
)

type constTag byte

const (
	ctUndefined constTag = iota
	ctNull
	ctFalse
	ctTrue
	ctSmallInt
	ctDouble
	ctString
	ctBigInt
)

// Encode serializes chunk (and its nested function tree) into the
// BCNK binary format.
func Encode(chunk *Chunk) []byte {
	buf := make([]byte, 0, len(chunk.Instructions)*2)
	buf = append(buf, bcnkMagic...)
	buf = append(buf, bcnkVersion)
	buf = encodeChunk(buf, chunk)
	return buf
}

func encodeChunk(buf []byte, c *Chunk) []byte {
	buf = appendUint32(buf, uint32(len(c.Name)))
	buf = append(buf, c.Name...)

	buf = appendUint32(buf, uint32(c.RegisterCount))
	buf = appendUint32(buf, uint32(c.ParamCount))
	if c.IsAsync {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	if c.ReservesThis {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	buf = appendUint32(buf, uint32(len(c.Constants)))
	for _, k := range c.Constants {
		buf = encodeConstant(buf, k)
	}

	buf = appendUint32(buf, uint32(len(c.Instructions)))
	buf = append(buf, c.Instructions...)

	buf = appendUint32(buf, uint32(len(c.NestedFunctions)))
	for _, nf := range c.NestedFunctions {
		buf = encodeChunk(buf, nf)
	}

	buf = appendUint32(buf, uint32(len(c.Upvalues)))
	for _, u := range c.Upvalues {
		if u.IsLocal {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = appendUint32(buf, u.Index)
	}

	return buf
}

func encodeConstant(buf []byte, v value.Value) []byte {
	switch v.Type() {
	case value.TypeUndefined:
		return append(buf, byte(ctUndefined))
	case value.TypeNull:
		return append(buf, byte(ctNull))
	case value.TypeBoolean:
		if v.AsBoolean() {
			return append(buf, byte(ctTrue))
		}
		return append(buf, byte(ctFalse))
	case value.TypeSmallInt:
		buf = append(buf, byte(ctSmallInt))
		return appendUint32(buf, uint32(v.AsInt32()))
	case value.TypeDouble:
		buf = append(buf, byte(ctDouble))
		return appendUint64(buf, math.Float64bits(v.AsFloat()))
	case value.TypeString:
		buf = append(buf, byte(ctString))
		s := v.AsString()
		buf = appendUint32(buf, uint32(len(s)))
		return append(buf, s...)
	case value.TypeBigInt:
		buf = append(buf, byte(ctBigInt))
		s := v.AsBigInt().String()
		buf = appendUint32(buf, uint32(len(s)))
		return append(buf, s...)
	default:
		// Heap-referenced constants (closures created at compile time,
		// shared templates) never appear in the constant pool: the
		// generator only ever pools immutable scalars (spec.md §3.5).
		panic(fmt.Sprintf("bytecode: cannot encode constant of type %v", v.Type()))
	}
}

// Decode parses a BCNK blob back into a Chunk tree.
func Decode(data []byte) (*Chunk, error) {
	if len(data) < 5 || string(data[:4]) != bcnkMagic {
		return nil, fmt.Errorf("bytecode: bad magic")
	}
	if data[4] != bcnkVersion {
		return nil, fmt.Errorf("bytecode: unsupported version %d", data[4])
	}
	r := &byteReader{buf: data[5:]}
	c, err := decodeChunk(r)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) u32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("bytecode: truncated u32")
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, fmt.Errorf("bytecode: truncated u64")
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) byte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, fmt.Errorf("bytecode: truncated byte")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("bytecode: truncated bytes")
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func decodeChunk(r *byteReader) (*Chunk, error) {
	nameLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	nameBytes, err := r.bytes(int(nameLen))
	if err != nil {
		return nil, err
	}
	c := NewChunk(string(nameBytes))

	regCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	c.RegisterCount = int(regCount)

	paramCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	c.ParamCount = int(paramCount)

	isAsync, err := r.byte()
	if err != nil {
		return nil, err
	}
	c.IsAsync = isAsync != 0

	reservesThis, err := r.byte()
	if err != nil {
		return nil, err
	}
	c.ReservesThis = reservesThis != 0

	constCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < constCount; i++ {
		k, err := decodeConstant(r)
		if err != nil {
			return nil, err
		}
		c.Constants = append(c.Constants, k)
	}

	instrCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	instr, err := r.bytes(int(instrCount))
	if err != nil {
		return nil, err
	}
	c.Instructions = append([]byte(nil), instr...)

	nestedCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nestedCount; i++ {
		nf, err := decodeChunk(r)
		if err != nil {
			return nil, err
		}
		c.NestedFunctions = append(c.NestedFunctions, nf)
	}

	upvalCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < upvalCount; i++ {
		isLocal, err := r.byte()
		if err != nil {
			return nil, err
		}
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		c.Upvalues = append(c.Upvalues, UpvalueDescriptor{IsLocal: isLocal != 0, Index: idx})
	}

	return c, nil
}

func decodeConstant(r *byteReader) (value.Value, error) {
	tag, err := r.byte()
	if err != nil {
		return value.Undefined, err
	}
	switch constTag(tag) {
	case ctUndefined:
		return value.Undefined, nil
	case ctNull:
		return value.Null, nil
	case ctFalse:
		return value.False, nil
	case ctTrue:
		return value.True, nil
	case ctSmallInt:
		v, err := r.u32()
		if err != nil {
			return value.Undefined, err
		}
		return value.Int(int32(v)), nil
	case ctDouble:
		bits, err := r.u64()
		if err != nil {
			return value.Undefined, err
		}
		return value.Double(math.Float64frombits(bits)), nil
	case ctString:
		n, err := r.u32()
		if err != nil {
			return value.Undefined, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return value.Undefined, err
		}
		return value.String(string(b)), nil
	case ctBigInt:
		n, err := r.u32()
		if err != nil {
			return value.Undefined, err
		}
		b, err := r.bytes(int(n))
		if err != nil {
			return value.Undefined, err
		}
		bi, ok := new(big.Int).SetString(string(b), 10)
		if !ok {
			return value.Undefined, fmt.Errorf("bytecode: invalid bigint literal %q", b)
		}
		return value.BigInt(bi), nil
	default:
		return value.Undefined, fmt.Errorf("bytecode: unknown constant tag %d", tag)
	}
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

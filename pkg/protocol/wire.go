package protocol

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"google.golang.org/protobuf/encoding/protowire"
)

var errWireType = errors.New("字段类型不匹配")

// ========== 编码 ==========

type encoder struct {
	b []byte
}

func (e *encoder) varint(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) sint(num protowire.Number, v int64) {
	e.varint(num, protowire.EncodeZigZag(v))
}

func (e *encoder) boolean(num protowire.Number, v bool) {
	if v {
		e.varint(num, 1)
	}
}

func (e *encoder) double(num protowire.Number, v float64) {
	if v == 0 {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.Fixed64Type)
	e.b = protowire.AppendFixed64(e.b, math.Float64bits(v))
}

func (e *encoder) str(num protowire.Number, s string) {
	if s == "" {
		return
	}
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, s)
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

// message 嵌套消息（即使为空也写出，用于表达"存在"）
func (e *encoder) message(num protowire.Number, fn func(*encoder)) {
	var sub encoder
	fn(&sub)
	e.bytes(num, sub.b)
}

func (e *encoder) vec3(num protowire.Number, v mgl64.Vec3) {
	e.message(num, func(sub *encoder) {
		sub.double(1, v.X())
		sub.double(2, v.Y())
		sub.double(3, v.Z())
	})
}

func (e *encoder) quat(num protowire.Number, q mgl64.Quat) {
	e.message(num, func(sub *encoder) {
		sub.double(1, q.V.X())
		sub.double(2, q.V.Y())
		sub.double(3, q.V.Z())
		sub.double(4, q.W)
	})
}

// ========== 解码 ==========

type fieldReader struct {
	typ protowire.Type
	b   []byte
	n   int
	err error
}

func (r *fieldReader) varint() uint64 {
	if r.err != nil {
		return 0
	}
	if r.typ != protowire.VarintType {
		r.err = errWireType
		return 0
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return 0
	}
	r.n = n
	return v
}

func (r *fieldReader) sint() int64 {
	return protowire.DecodeZigZag(r.varint())
}

func (r *fieldReader) boolean() bool {
	return r.varint() != 0
}

func (r *fieldReader) double() float64 {
	if r.err != nil {
		return 0
	}
	if r.typ != protowire.Fixed64Type {
		r.err = errWireType
		return 0
	}
	v, n := protowire.ConsumeFixed64(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return 0
	}
	r.n = n
	return math.Float64frombits(v)
}

func (r *fieldReader) bytes() []byte {
	if r.err != nil {
		return nil
	}
	if r.typ != protowire.BytesType {
		r.err = errWireType
		return nil
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return nil
	}
	r.n = n
	return v
}

func (r *fieldReader) str() string {
	return string(r.bytes())
}

// nested 解析嵌套消息
func (r *fieldReader) nested(fn func(num protowire.Number, sub *fieldReader)) {
	b := r.bytes()
	if r.err != nil {
		return
	}
	r.err = walk(b, fn)
}

func (r *fieldReader) vec3() mgl64.Vec3 {
	var v mgl64.Vec3
	r.nested(func(num protowire.Number, sub *fieldReader) {
		switch num {
		case 1:
			v[0] = sub.double()
		case 2:
			v[1] = sub.double()
		case 3:
			v[2] = sub.double()
		}
	})
	return v
}

func (r *fieldReader) quat() mgl64.Quat {
	var q mgl64.Quat
	r.nested(func(num protowire.Number, sub *fieldReader) {
		switch num {
		case 1:
			q.V[0] = sub.double()
		case 2:
			q.V[1] = sub.double()
		case 3:
			q.V[2] = sub.double()
		case 4:
			q.W = sub.double()
		}
	})
	return q
}

// walk 逐字段回调，未处理的字段自动跳过
func walk(b []byte, fn func(num protowire.Number, r *fieldReader)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		r := fieldReader{typ: typ, b: b}
		fn(num, &r)
		if r.err != nil {
			return r.err
		}
		if r.n == 0 {
			r.n = protowire.ConsumeFieldValue(num, typ, b)
			if r.n < 0 {
				return protowire.ParseError(r.n)
			}
		}
		b = b[r.n:]
	}
	return nil
}

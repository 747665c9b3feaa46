// Package value defines the tagged runtime value representation shared by
// the compiler and the VM, the heap object kinds that values of kind Obj
// point at, and the bytecode chunk format that functions own.
package value

import "fmt"

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is a copy-cheap tagged union. Zero value is Null.
type Value struct {
	kind Kind
	num  float64
	obj  Obj
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// FromObj wraps a heap object.
func FromObj(o Obj) Value { return Value{kind: KindObj, obj: o} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsBool() bool    { return v.kind == KindBool }
func (v Value) IsNumber() bool  { return v.kind == KindNumber }
func (v Value) IsObj() bool     { return v.kind == KindObj }
func (v Value) AsBool() bool    { return v.num != 0 }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObj() Obj      { return v.obj }

// IsObjType reports whether v is a heap object of the given type.
func (v Value) IsObjType(t ObjType) bool {
	return v.kind == KindObj && v.obj != nil && v.obj.Type() == t
}

// IsString reports whether v holds an *ObjString.
func (v Value) IsString() bool { return v.IsObjType(ObjTypeString) }

// AsString returns v's *ObjString. Callers must check IsString first.
func (v Value) AsString() *ObjString { return v.obj.(*ObjString) }

// Equal implements the spec's type-matched equality: booleans and numbers by
// value, null equals null, objects (including interned strings) by identity.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool, KindNumber:
		return a.num == b.num
	case KindObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders v the way the Print instruction and disassembler do.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.num)
	case KindObj:
		if v.obj == nil {
			return "null"
		}
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

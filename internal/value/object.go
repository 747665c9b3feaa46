package value

// ObjType tags the concrete kind of a heap object.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeNative
	ObjTypeClass
	ObjTypeInstance
)

func (t ObjType) String() string {
	switch t {
	case ObjTypeString:
		return "string"
	case ObjTypeFunction:
		return "function"
	case ObjTypeClosure:
		return "closure"
	case ObjTypeUpvalue:
		return "upvalue"
	case ObjTypeNative:
		return "native"
	case ObjTypeClass:
		return "class"
	case ObjTypeInstance:
		return "instance"
	default:
		return "?unknown-obj?"
	}
}

// Header is the inline header every heap object carries: its GC mark bit and
// the intrusive next-in-heap link used by the sweep phase. Every concrete
// object embeds Header and so gets Marked/Next for free.
type Header struct {
	Marked bool
	Next   Obj
}

// Obj is implemented by every heap-allocated kind.
type Obj interface {
	Type() ObjType
	String() string
	header() *Header
}

// Mark/Unmark/IsMarked/NextObj/SetNextObj give the collector uniform access
// to any Obj's embedded Header without a type switch.
func Mark(o Obj)              { o.header().Marked = true }
func Unmark(o Obj)             { o.header().Marked = false }
func IsMarked(o Obj) bool      { return o.header().Marked }
func NextObj(o Obj) Obj        { return o.header().Next }
func SetNextObj(o Obj, n Obj)  { o.header().Next = n }

// ObjString is an immutable, interned UTF-8 string.
type ObjString struct {
	Header
	Chars string
	Hash  uint32
}

func (s *ObjString) Type() ObjType   { return ObjTypeString }
func (s *ObjString) String() string  { return s.Chars }
func (s *ObjString) header() *Header { return &s.Header }

// HashString computes the FNV-1a hash the spec requires strings to be keyed
// by, both in the intern table and in ObjString.Hash.
func HashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// ObjFunction is a compiled function: its arity, declared upvalue count, the
// chunk of its body, and an optional name (nil for the top-level script).
type ObjFunction struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString
}

func (f *ObjFunction) Type() ObjType { return ObjTypeFunction }
func (f *ObjFunction) header() *Header { return &f.Header }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return "<fn " + f.Name.Chars + ">"
}

// NativeFn is the contract native functions implement.
type NativeFn func(args []Value) (Value, error)

// ObjNative wraps a Go function exposed to breeze code.
type ObjNative struct {
	Header
	Name     string
	Function NativeFn
}

func (n *ObjNative) Type() ObjType   { return ObjTypeNative }
func (n *ObjNative) header() *Header { return &n.Header }
func (n *ObjNative) String() string  { return "<native fn " + n.Name + ">" }

// ObjUpvalue captures a stack slot while open, and holds the value inline
// once closed. Open upvalues are threaded into a singly linked list sorted
// by descending stack slot via NextOpen. Slot records the stack index
// Location pointed into while open; Go gives no pointer-arithmetic way to
// recover that from Location alone (unlike the original's raw address
// comparisons), so the VM stamps it in at capture time and uses it purely
// for list ordering.
type ObjUpvalue struct {
	Header
	Location *Value // points into the VM stack while open, or &Closed once closed
	Closed   Value
	Slot     int
	NextOpen *ObjUpvalue // open-upvalue-list link; unrelated to Header.Next
}

func (u *ObjUpvalue) Type() ObjType   { return ObjTypeUpvalue }
func (u *ObjUpvalue) header() *Header { return &u.Header }
func (u *ObjUpvalue) String() string  { return "<upvalue>" }

// IsOpen reports whether this upvalue still points into the stack.
func (u *ObjUpvalue) IsOpen() bool { return u.Location != &u.Closed }

// ObjClosure pairs a function with its captured upvalues.
type ObjClosure struct {
	Header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Type() ObjType   { return ObjTypeClosure }
func (c *ObjClosure) header() *Header { return &c.Header }
func (c *ObjClosure) String() string  { return c.Function.String() }

// ObjClass holds a method table and the set of field names instances of the
// class are permitted to carry (populated by DefineProperty).
type ObjClass struct {
	Header
	Name    *ObjString
	Methods *Table
	Fields  *Set
}

func (c *ObjClass) Type() ObjType   { return ObjTypeClass }
func (c *ObjClass) header() *Header { return &c.Header }
func (c *ObjClass) String() string  { return c.Name.Chars }

// ObjInstance is a runtime instance of a class with its own field values.
type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields *Table
}

func (i *ObjInstance) Type() ObjType   { return ObjTypeInstance }
func (i *ObjInstance) header() *Header { return &i.Header }
func (i *ObjInstance) String() string  { return i.Class.Name.Chars + " instance" }

package value

import "sort"

// Op is a single bytecode instruction's opcode byte.
type Op byte

const (
	OpConst Op = iota
	OpConstLong
	OpNull
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpSetGlobal
	OpDefineGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpDefineProperty
	OpClass
	OpMethod
	OpClosure
	OpCloseUpvalue
	OpCall
	OpRet
	OpJmp
	OpJmpIfFalse
	OpLoop
	OpNot
	OpNeg
	OpEq
	OpGt
	OpLt
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPrint
)

var opNames = map[Op]string{
	OpConst:          "CONST",
	OpConstLong:      "CONST_LONG",
	OpNull:           "NULL",
	OpTrue:           "TRUE",
	OpFalse:          "FALSE",
	OpPop:            "POP",
	OpGetLocal:       "GET_LOCAL",
	OpSetLocal:       "SET_LOCAL",
	OpGetGlobal:      "GET_GLOBAL",
	OpSetGlobal:      "SET_GLOBAL",
	OpDefineGlobal:   "DEFINE_GLOBAL",
	OpGetUpvalue:     "GET_UPVALUE",
	OpSetUpvalue:     "SET_UPVALUE",
	OpGetProperty:    "GET_PROPERTY",
	OpSetProperty:    "SET_PROPERTY",
	OpDefineProperty: "DEFINE_PROPERTY",
	OpClass:          "CLASS",
	OpMethod:         "METHOD",
	OpClosure:        "CLOSURE",
	OpCloseUpvalue:   "CLOSE_UPVALUE",
	OpCall:           "CALL",
	OpRet:            "RET",
	OpJmp:            "JMP",
	OpJmpIfFalse:     "JMP_IF_FALSE",
	OpLoop:           "LOOP",
	OpNot:            "NOT",
	OpNeg:            "NEG",
	OpEq:             "EQ",
	OpGt:             "GT",
	OpLt:             "LT",
	OpAdd:            "ADD",
	OpSub:            "SUB",
	OpMul:            "MUL",
	OpDiv:            "DIV",
	OpPrint:          "PRINT",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// lineRun records that the instructions up to and including EndOffset (the
// last byte appended while compiling Line) were emitted for Line.
type lineRun struct {
	Line      int
	EndOffset int
}

// Chunk is one function's compiled output: its instruction stream, constant
// pool, and a compressed line map.
type Chunk struct {
	Code      []byte
	Constants []Value
	lines     []lineRun
}

// NewChunk returns an empty chunk.
func NewChunk() *Chunk { return &Chunk{} }

// Write appends a byte attributed to the given source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	if len(c.lines) > 0 && c.lines[len(c.lines)-1].Line == line {
		c.lines[len(c.lines)-1].EndOffset = len(c.Code) - 1
		return
	}
	c.lines = append(c.lines, lineRun{Line: line, EndOffset: len(c.Code) - 1})
}

// AddConstant appends v to the constant pool and returns its index. The
// compiler is responsible for enforcing the 65535-constant ceiling (spec
// invariant 2); AddConstant itself never fails.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// GetLine finds the source line attributed to the instruction at offset,
// via binary search over the run-length-encoded line map. Returns 0 for an
// empty map; returns the last line for an offset beyond the last write.
func (c *Chunk) GetLine(offset int) int {
	if len(c.lines) == 0 {
		return 0
	}
	i := sort.Search(len(c.lines), func(i int) bool {
		return c.lines[i].EndOffset >= offset
	})
	if i == len(c.lines) {
		return c.lines[len(c.lines)-1].Line
	}
	return c.lines[i].Line
}

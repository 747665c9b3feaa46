// Package gc implements the tracing mark-sweep collector over the object
// graph defined in internal/value: an intrusive all-objects list swept at
// collection time, a gray worklist for tracing, and a weak string-interning
// table that is swept before the heap itself.
//
// The collector knows nothing about the VM's call-frame stack or the
// compiler's in-progress function chain; both register themselves as a
// RootSource so Heap never needs to import either package.
package gc

import (
	"github.com/nobertos/breeze-lang/internal/gcstat"
	"github.com/nobertos/breeze-lang/internal/value"
)

// initialNextGC mirrors the original engine's 1MiB starting threshold.
const initialNextGC = 1024 * 1024

// Rough, intentionally approximate per-object overheads used only to decide
// when to collect; they do not need to track Go's real allocator.
const (
	stringOverhead   = 40
	functionOverhead = 96
	nativeOverhead   = 48
	upvalueOverhead  = 32
	closureOverhead  = 48
	classOverhead    = 64
	instanceOverhead = 48
)

// RootSource is implemented by anything that owns references into the
// engine's heap that must survive a collection: the VM (stack, frames,
// globals, open upvalues) and the compiler (its in-progress function
// chain). Heap calls MarkRoots on every registered source at the start of
// each collection.
type RootSource interface {
	MarkRoots(markObj func(value.Obj), markVal func(value.Value))
}

// Heap owns the engine's object graph: the intrusive all-objects list, the
// weak string-interning table, and the tri-color collector state.
type Heap struct {
	objects value.Obj
	strings *value.Table

	bytesAllocated uint64
	nextGC         uint64
	stress         bool

	gray      []value.Obj
	protected []value.Obj // handles kept alive across a risky allocation window
	roots     []RootSource

	recorder gcstat.Recorder
	seq      int
}

// NewHeap returns an empty heap ready to allocate into.
func NewHeap() *Heap {
	return &Heap{
		strings: value.NewTable(),
		nextGC:  initialNextGC,
	}
}

// SetStressMode forces a collection on every allocation, for exercising GC
// bugs that only show up under aggressive collection.
func (h *Heap) SetStressMode(on bool) { h.stress = on }

// SetRecorder attaches telemetry. A nil recorder (the default) disables
// telemetry entirely at zero cost.
func (h *Heap) SetRecorder(r gcstat.Recorder) { h.recorder = r }

// AddRoot registers a root source; it must call RemoveRoot when its
// references are no longer live (the compiler does this when Compile
// returns).
func (h *Heap) AddRoot(r RootSource) { h.roots = append(h.roots, r) }

// RemoveRoot unregisters a previously added root source.
func (h *Heap) RemoveRoot(r RootSource) {
	for i, existing := range h.roots {
		if existing == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

func (h *Heap) link(o value.Obj) {
	value.SetNextObj(o, h.objects)
	h.objects = o
}

// protect keeps o alive across any further allocation performed before the
// matching unprotect, implementing the spec's "stack-protect a newly
// allocated temporary" contract without needing access to the VM's real
// value stack.
func (h *Heap) protect(o value.Obj) { h.protected = append(h.protected, o) }
func (h *Heap) unprotect()          { h.protected = h.protected[:len(h.protected)-1] }

func (h *Heap) trackAndMaybeCollect(size uint64) {
	h.bytesAllocated += size
	if h.stress {
		h.Collect("stress")
		return
	}
	if h.bytesAllocated > h.nextGC {
		h.Collect("threshold")
	}
}

// CopyString interns chars, copying it in (conceptually — Go strings are
// already immutable) if no equal-content string is already interned.
func (h *Heap) CopyString(chars string) *value.ObjString {
	return h.internOrAllocate(chars)
}

// TakeString interns chars, which the caller has just computed (e.g. string
// concatenation) and no longer needs itself. Distinct entry point from
// CopyString per spec §4.4; both funnel through the same interning probe.
func (h *Heap) TakeString(chars string) *value.ObjString {
	return h.internOrAllocate(chars)
}

func (h *Heap) internOrAllocate(chars string) *value.ObjString {
	hash := value.HashString(chars)
	if existing := h.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	s := &value.ObjString{Chars: chars, Hash: hash}
	h.link(s)
	h.protect(s)
	h.strings.Set(s, value.Bool(true))
	h.trackAndMaybeCollect(stringOverhead + uint64(len(chars)))
	h.unprotect()
	return s
}

// NewFunction allocates an empty function object ready for the compiler to
// fill in. Protected around trackAndMaybeCollect like every other
// constructor here: the object is linked into the heap, and therefore
// collectable, before its caller has stored it anywhere a root reaches.
func (h *Heap) NewFunction() *value.ObjFunction {
	fn := &value.ObjFunction{Chunk: value.NewChunk()}
	h.link(fn)
	h.protect(fn)
	h.trackAndMaybeCollect(functionOverhead)
	h.unprotect()
	return fn
}

// NewNative wraps a Go function as a callable native value.
func (h *Heap) NewNative(name string, fn value.NativeFn) *value.ObjNative {
	n := &value.ObjNative{Name: name, Function: fn}
	h.link(n)
	h.protect(n)
	h.trackAndMaybeCollect(nativeOverhead)
	h.unprotect()
	return n
}

// NewUpvalue returns a fresh open upvalue pointing at location, which is
// the stack-slot index slotIdx (the VM stamps the index in alongside the
// pointer since Go gives no way to recover one from the other).
func (h *Heap) NewUpvalue(location *value.Value, slotIdx int) *value.ObjUpvalue {
	u := &value.ObjUpvalue{Location: location, Slot: slotIdx}
	h.link(u)
	h.protect(u)
	h.trackAndMaybeCollect(upvalueOverhead)
	h.unprotect()
	return u
}

// NewClosure boxes fn with a freshly allocated, zero-filled upvalue array
// sized to fn's declared upvalue count (spec invariant 4).
func (h *Heap) NewClosure(fn *value.ObjFunction) *value.ObjClosure {
	c := &value.ObjClosure{Function: fn, Upvalues: make([]*value.ObjUpvalue, fn.UpvalueCount)}
	h.link(c)
	h.protect(c)
	h.trackAndMaybeCollect(closureOverhead + uint64(fn.UpvalueCount)*8)
	h.unprotect()
	return c
}

// NewClass allocates an empty class with empty method table and field set.
func (h *Heap) NewClass(name *value.ObjString) *value.ObjClass {
	c := &value.ObjClass{Name: name, Methods: value.NewTable(), Fields: value.NewSet()}
	h.link(c)
	h.protect(c)
	h.trackAndMaybeCollect(classOverhead)
	h.unprotect()
	return c
}

// NewInstance allocates an instance of class with an empty field table.
func (h *Heap) NewInstance(class *value.ObjClass) *value.ObjInstance {
	i := &value.ObjInstance{Class: class, Fields: value.NewTable()}
	h.link(i)
	h.protect(i)
	h.trackAndMaybeCollect(instanceOverhead)
	h.unprotect()
	return i
}

// Collect runs one full mark-sweep cycle: mark roots, trace the gray
// worklist, sweep the weak string table, then sweep the heap itself — in
// that order, matching spec §4.3.
func (h *Heap) Collect(cause string) {
	before := h.bytesAllocated

	h.markRoots()
	h.trace()
	h.strings.RemoveUnmarkedKeys()
	freed := h.sweepHeap()

	if freed > h.bytesAllocated {
		h.bytesAllocated = 0
	} else {
		h.bytesAllocated -= freed
	}
	h.nextGC = h.bytesAllocated * 2
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}

	if h.recorder != nil {
		h.seq++
		h.recorder.Record(gcstat.Event{
			Seq:         h.seq,
			BeforeBytes: before,
			AfterBytes:  h.bytesAllocated,
			NextGC:      h.nextGC,
			Cause:       cause,
		})
	}
}

func (h *Heap) markRoots() {
	for _, o := range h.protected {
		h.markObject(o)
	}
	for _, r := range h.roots {
		r.MarkRoots(h.markObject, h.markValue)
	}
}

func (h *Heap) markValue(v value.Value) {
	if v.IsObj() {
		h.markObject(v.AsObj())
	}
}

func (h *Heap) markObject(o value.Obj) {
	if o == nil || value.IsMarked(o) {
		return
	}
	value.Mark(o)
	h.gray = append(h.gray, o)
}

func (h *Heap) trace() {
	for len(h.gray) > 0 {
		o := h.gray[len(h.gray)-1]
		h.gray = h.gray[:len(h.gray)-1]
		h.blacken(o)
	}
}

func (h *Heap) blacken(o value.Obj) {
	switch obj := o.(type) {
	case *value.ObjString:
		// no outgoing references
	case *value.ObjFunction:
		if obj.Name != nil {
			h.markObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			h.markValue(c)
		}
	case *value.ObjClosure:
		h.markObject(obj.Function)
		for _, u := range obj.Upvalues {
			if u != nil {
				h.markObject(u)
			}
		}
	case *value.ObjUpvalue:
		h.markValue(obj.Closed)
	case *value.ObjNative:
		// no outgoing references
	case *value.ObjClass:
		h.markObject(obj.Name)
		obj.Methods.Each(func(k *value.ObjString, v value.Value) {
			h.markObject(k)
			h.markValue(v)
		})
		markSetKeys(obj.Fields, h.markObject)
	case *value.ObjInstance:
		h.markObject(obj.Class)
		obj.Fields.Each(func(k *value.ObjString, v value.Value) {
			h.markObject(k)
			h.markValue(v)
		})
	}
}

func (h *Heap) sweepHeap() uint64 {
	var freed uint64
	var prev value.Obj
	obj := h.objects
	for obj != nil {
		next := value.NextObj(obj)
		if value.IsMarked(obj) {
			value.Unmark(obj)
			prev = obj
			obj = next
			continue
		}
		if prev == nil {
			h.objects = next
		} else {
			value.SetNextObj(prev, next)
		}
		freed += objSize(obj)
		obj = next
	}
	return freed
}

func markSetKeys(s *value.Set, markObj func(value.Obj)) {
	s.Each(func(k *value.ObjString) { markObj(k) })
}

func objSize(o value.Obj) uint64 {
	switch obj := o.(type) {
	case *value.ObjString:
		return stringOverhead + uint64(len(obj.Chars))
	case *value.ObjFunction:
		return functionOverhead
	case *value.ObjClosure:
		return closureOverhead + uint64(len(obj.Upvalues))*8
	case *value.ObjUpvalue:
		return upvalueOverhead
	case *value.ObjNative:
		return nativeOverhead
	case *value.ObjClass:
		return classOverhead
	case *value.ObjInstance:
		return instanceOverhead
	default:
		return 0
	}
}

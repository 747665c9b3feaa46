package value

import "testing"

func str(s string) *ObjString {
	return &ObjString{Chars: s, Hash: HashString(s)}
}

func TestTableSetGet(t *testing.T) {
	tab := NewTable()
	k := str("x")
	if isNew := tab.Set(k, Number(1)); !isNew {
		t.Fatal("first Set of a fresh key reported isNew=false")
	}
	if isNew := tab.Set(k, Number(2)); isNew {
		t.Fatal("second Set of the same key reported isNew=true")
	}
	v, ok := tab.Get(k)
	if !ok || !Equal(v, Number(2)) {
		t.Fatalf("Get = %v, %v; want 2, true", v, ok)
	}
	if tab.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tab.Len())
	}
}

func TestTableDeleteTombstoneReuse(t *testing.T) {
	tab := NewTable()
	a, b := str("a"), str("b")
	tab.Set(a, Number(1))
	tab.Set(b, Number(2))

	if !tab.Delete(a) {
		t.Fatal("Delete of present key returned false")
	}
	if tab.Delete(a) {
		t.Fatal("Delete of absent key returned true")
	}
	if _, ok := tab.Get(a); ok {
		t.Fatal("Get found a deleted key")
	}
	if v, ok := tab.Get(b); !ok || !Equal(v, Number(2)) {
		t.Fatalf("deleting a probed past a tombstone: Get(b) = %v, %v", v, ok)
	}

	// Inserting a fresh key should be able to reuse the tombstone slot
	// without growing the table.
	c := str("c")
	before := len(tab.entries)
	tab.Set(c, Number(3))
	if len(tab.entries) != before {
		t.Errorf("Set after Delete grew the table; tombstone reuse expected")
	}
}

func TestTableGrowsAndPreservesEntries(t *testing.T) {
	tab := NewTable()
	keys := make([]*ObjString, 0, 64)
	for i := 0; i < 64; i++ {
		k := str(string(rune('a' + i%26)) + string(rune('A'+(i/26))))
		keys = append(keys, k)
		tab.Set(k, Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tab.Get(k)
		if !ok || !Equal(v, Number(float64(i))) {
			t.Fatalf("key %d lost after growth: %v, %v", i, v, ok)
		}
	}
}

func TestTableFindString(t *testing.T) {
	tab := NewTable()
	k := str("interned")
	tab.Set(k, Bool(true))

	if got := tab.FindString("interned", HashString("interned")); got != k {
		t.Errorf("FindString did not find the interned key by content")
	}
	if got := tab.FindString("nope", HashString("nope")); got != nil {
		t.Errorf("FindString found a non-existent key: %v", got)
	}
}

func TestTableRemoveUnmarkedKeys(t *testing.T) {
	tab := NewTable()
	marked, unmarked := str("marked"), str("unmarked")
	marked.Header.Marked = true
	tab.Set(marked, Bool(true))
	tab.Set(unmarked, Bool(true))

	tab.RemoveUnmarkedKeys()

	if !tab.Contains(marked) {
		t.Error("RemoveUnmarkedKeys removed a marked key")
	}
	if tab.Contains(unmarked) {
		t.Error("RemoveUnmarkedKeys kept an unmarked key")
	}
}

func TestSetInsertContains(t *testing.T) {
	s := NewSet()
	k := str("field")
	if isNew := s.Insert(k); !isNew {
		t.Fatal("first Insert reported isNew=false")
	}
	if isNew := s.Insert(k); isNew {
		t.Fatal("second Insert of same key reported isNew=true")
	}
	if !s.Contains(k) {
		t.Fatal("Contains false for inserted key")
	}
	if s.Contains(str("other")) {
		t.Fatal("Contains true for key never inserted")
	}
}

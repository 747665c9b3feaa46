package scanner

import "testing"

func collect(src string) []Token {
	sc := New(src)
	var toks []Token
	for {
		tok := sc.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestPunctuationAndOperators(t *testing.T) {
	toks := collect("( ) { } , . ; + - * / ! != = == < <= > >= && ||")
	want := []Kind{
		LeftParen, RightParen, LeftBrace, RightBrace, Comma, Dot, Semicolon,
		Plus, Minus, Star, Slash, Bang, BangEqual, Equal, EqualEqual,
		Less, LessEqual, Greater, GreaterEqual, AndAnd, OrOr, EOF,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := collect("class else false for fn if let null print return super self true while foobar")
	wantKeywords := []Kind{Class, Else, False, For, Fn, If, Let, Null, Print, Return, Super, Self, True, While}
	for i, k := range wantKeywords {
		if toks[i].Kind != k {
			t.Errorf("keyword %d: got %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[len(wantKeywords)].Kind != Identifier {
		t.Errorf("foobar scanned as %v, want Identifier", toks[len(wantKeywords)].Kind)
	}
}

func TestNumberLiterals(t *testing.T) {
	toks := collect("123 45.67")
	if toks[0].Kind != Number || toks[0].Lexeme != "123" {
		t.Errorf("got %v %q", toks[0].Kind, toks[0].Lexeme)
	}
	if toks[1].Kind != Number || toks[1].Lexeme != "45.67" {
		t.Errorf("got %v %q", toks[1].Kind, toks[1].Lexeme)
	}
}

func TestStringLiteral(t *testing.T) {
	toks := collect(`"hello world"`)
	if toks[0].Kind != String || toks[0].Lexeme != `"hello world"` {
		t.Errorf("got %v %q", toks[0].Kind, toks[0].Lexeme)
	}
}

func TestUnterminatedString(t *testing.T) {
	toks := collect(`"oops`)
	if toks[0].Kind != Error {
		t.Fatalf("got %v, want Error", toks[0].Kind)
	}
}

func TestCommentsAndWhitespaceSkipped(t *testing.T) {
	toks := collect("let a = 1; // trailing comment\nlet b = 2;")
	var kinds []Kind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{Let, Identifier, Equal, Number, Semicolon, Let, Identifier, Equal, Number, Semicolon, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestLineTracking(t *testing.T) {
	toks := collect("let a = 1;\nlet b = 2;")
	if toks[0].Line != 1 {
		t.Errorf("first token line = %d, want 1", toks[0].Line)
	}
	last := toks[len(toks)-2] // semicolon of second statement
	if last.Line != 2 {
		t.Errorf("second statement line = %d, want 2", last.Line)
	}
}

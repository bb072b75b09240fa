package slang

// Parser builds the pair/atom/vector value tree the compiler walks
// directly as its AST (spec.md §4.4) — in a Lisp, the reader's output
// already *is* the syntax tree, so there is no separate AstNode type
// the way a non-homoiconic language's front end would need one.
type Parser struct {
	vm   *VM
	tok  *Tokenizer
	peek *Token

	// Locations lets the compiler recover a source position for any
	// node it is currently lowering (spec.md §4.4's "node→location
	// side map"), since the value tree itself carries no location.
	Locations map[Ref]Location
}

func NewParser(vm *VM, moduleName, src string) *Parser {
	return &Parser{
		vm:        vm,
		tok:       NewTokenizer(moduleName, src),
		Locations: make(map[Ref]Location),
	}
}

func (p *Parser) next() (Token, error) {
	if p.peek != nil {
		t := *p.peek
		p.peek = nil
		return t, nil
	}
	return p.tok.Next()
}

func (p *Parser) peekToken() (Token, error) {
	if p.peek == nil {
		t, err := p.tok.Next()
		if err != nil {
			return Token{}, err
		}
		p.peek = &t
	}
	return *p.peek, nil
}

func (p *Parser) mark(r Ref, loc Location) Ref {
	if !r.IsNull() {
		p.Locations[r] = loc
	}
	return r
}

// ParseTopLevel reads every form in the source, returning them as a
// slice of value-tree roots (one per top-level form).
func (p *Parser) ParseTopLevel() ([]Ref, error) {
	var forms []Ref
	for {
		tok, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokEOF {
			return forms, nil
		}
		form, err := p.parseForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
}

func (p *Parser) parseForm() (Ref, error) {
	tok, err := p.next()
	if err != nil {
		return NullRef, err
	}
	switch tok.Kind {
	case TokEOF:
		return NullRef, NewError(SyntaxError, tok.Loc, "unexpected end of input")
	case TokLParen:
		return p.parseListUntil(tok.Loc, closerFor(tok.Text[0]))
	case TokRParen:
		return NullRef, NewError(SyntaxError, tok.Loc, "unexpected %q", tok.Text)
	case TokVectorMarker:
		return p.parseVector(tok.Loc)
	case TokDot:
		return NullRef, NewError(SyntaxError, tok.Loc, "`.` outside a dotted list")
	case TokQuote:
		return p.parseSugar(tok.Loc, SymQuote)
	case TokQuasiquote:
		return p.parseSugar(tok.Loc, SymQuasiquote)
	case TokUnquote:
		return p.parseSugar(tok.Loc, SymUnquote)
	case TokUnquoteSplicing:
		return p.parseSugar(tok.Loc, SymUnquoteSplicing)
	case TokNot:
		return p.parsePrefix(tok, SymNot)
	case TokNegation:
		return p.parsePrefix(tok, p.vm.symbols.Intern("-"))
	case TokInvert:
		return p.parsePrefix(tok, p.vm.symbols.Intern("/"))
	case TokInt:
		return p.mark(p.vm.newInt(tok.IVal), tok.Loc), nil
	case TokReal:
		return p.mark(p.vm.newReal(tok.RVal), tok.Loc), nil
	case TokBool:
		return p.mark(p.vm.newBool(tok.Text == "true"), tok.Loc), nil
	case TokString:
		return p.mark(p.vm.newString(tok.Text), tok.Loc), nil
	case TokSymbol:
		sym := p.vm.symbols.Intern(tok.Text)
		return p.mark(p.vm.newSymbolValue(sym), tok.Loc), nil
	}
	return NullRef, NewError(SyntaxError, tok.Loc, "unrecognized token")
}

func (p *Parser) parseSugar(loc Location, head SymbolName) (Ref, error) {
	inner, err := p.parseForm()
	if err != nil {
		return NullRef, err
	}
	lst := p.vm.newPair(inner, NullRef)
	headVal := p.vm.newSymbolValue(head)
	return p.mark(p.vm.newPair(headVal, lst), loc), nil
}

// parsePrefix desugars the one-token prefixes: `!x` → `(not x)`,
// `-x` → `(- x)`, `/x` → `(/ x)` (spec.md §4.4). The token's Text is
// the atom the prefix applies to.
func (p *Parser) parsePrefix(tok Token, head SymbolName) (Ref, error) {
	inner := p.atomFromText(tok.Text, tok.Loc)
	lst := p.vm.newPair(inner, NullRef)
	headVal := p.vm.newSymbolValue(head)
	return p.mark(p.vm.newPair(headVal, lst), tok.Loc), nil
}

func (p *Parser) atomFromText(text string, loc Location) Ref {
	if text == "true" || text == "false" {
		return p.mark(p.vm.newBool(text == "true"), loc)
	}
	if iv, ok := parseInt(text); ok {
		return p.mark(p.vm.newInt(iv), loc)
	}
	if rv, ok := parseReal(text); ok {
		return p.mark(p.vm.newReal(rv), loc)
	}
	return p.mark(p.vm.newSymbolValue(p.vm.symbols.Intern(text)), loc)
}

func (p *Parser) parseListUntil(loc Location, closer byte) (Ref, error) {
	var items []Ref
	for {
		tok, err := p.peekToken()
		if err != nil {
			return NullRef, err
		}
		if tok.Kind == TokEOF {
			return NullRef, NewError(SyntaxError, loc, "unterminated list")
		}
		if tok.Kind == TokRParen {
			if tok.Text[0] != closer {
				return NullRef, NewError(SyntaxError, tok.Loc,
					"mismatched bracket: expected %q, got %q", string(closer), tok.Text)
			}
			p.next()
			break
		}
		// dotted pair: `. expr)`
		if tok.Kind == TokDot {
			p.next()
			tail, err := p.parseForm()
			if err != nil {
				return NullRef, err
			}
			end, err := p.next()
			if err != nil {
				return NullRef, err
			}
			if end.Kind != TokRParen || end.Text[0] != closer {
				return NullRef, NewError(SyntaxError, end.Loc, "malformed dotted list")
			}
			result := tail
			for i := len(items) - 1; i >= 0; i-- {
				result = p.vm.newPair(items[i], result)
			}
			return p.mark(result, loc), nil
		}
		item, err := p.parseForm()
		if err != nil {
			return NullRef, err
		}
		items = append(items, item)
	}
	result := NullRef
	for i := len(items) - 1; i >= 0; i-- {
		result = p.vm.newPair(items[i], result)
	}
	return p.mark(result, loc), nil
}

// parseVector parses `#( … )` (any bracket style after the marker)
// into a vector value. The contents are constants, not run-time
// expressions: the whole literal is materialized at parse time
// (spec.md §4.4).
func (p *Parser) parseVector(loc Location) (Ref, error) {
	open, err := p.next()
	if err != nil {
		return NullRef, err
	}
	if open.Kind != TokLParen {
		return NullRef, NewError(SyntaxError, open.Loc, "expected an opening bracket after #")
	}
	closer := closerFor(open.Text[0])
	var items []Ref
	for {
		tok, err := p.peekToken()
		if err != nil {
			return NullRef, err
		}
		if tok.Kind == TokEOF {
			return NullRef, NewError(SyntaxError, loc, "unterminated vector literal")
		}
		if tok.Kind == TokRParen {
			if tok.Text[0] != closer {
				return NullRef, NewError(SyntaxError, tok.Loc,
					"mismatched bracket: expected %q, got %q", string(closer), tok.Text)
			}
			p.next()
			break
		}
		item, err := p.parseForm()
		if err != nil {
			return NullRef, err
		}
		items = append(items, item)
	}
	return p.mark(p.vm.newVectorFrom(items), loc), nil
}

package slang

// compileQuasiquoteForm is the `quasiquote` special form's entry
// point: the template starts at depth 1, the convention spec.md §4.5
// uses for "one quasiquote currently open".
func (c *Compiler) compileQuasiquoteForm(form, rest Ref) {
	if rest.IsNull() {
		c.emit(OpNull)
		return
	}
	c.compileQuasiquote(c.vm.arena.Get(rest).left, 1)
}

// compileQuasiquote walks tmpl at nesting depth depth, emitting PAIR/
// LIST_CONCAT to rebuild list structure at run time and recursing
// into the evaluated expression when an `unquote` is reached at depth
// 1. Vector literals are never evaluated at run time regardless of
// depth (spec.md §4.4: "the whole vector is a constant"), so they
// fall straight to compileConstant the same as any other literal the
// template isn't rebuilding.
func (c *Compiler) compileQuasiquote(tmpl Ref, depth int) {
	if tmpl.IsNull() {
		c.emit(OpNull)
		return
	}
	obj := c.vm.arena.Get(tmpl)
	if obj.hdr.kind != KindPair {
		c.compileConstant(tmpl)
		return
	}
	if sym, ok := c.symOf(obj.left); ok {
		switch sym {
		case SymUnquote:
			inner := c.vm.arena.Get(obj.right).left
			if depth == 1 {
				c.markImpure()
				c.compile(inner, false)
			} else {
				c.rebuildTaggedList(SymUnquote, inner, depth-1)
			}
			return
		case SymQuasiquote:
			inner := c.vm.arena.Get(obj.right).left
			c.rebuildTaggedList(SymQuasiquote, inner, depth+1)
			return
		case SymUnquoteSplicing:
			if depth == 1 {
				c.errorf(tmpl, QuasiquoteError, "unquote-splicing not in a list tail")
				c.emit(OpNull)
				return
			}
			inner := c.vm.arena.Get(obj.right).left
			c.rebuildTaggedList(SymUnquoteSplicing, inner, depth-1)
			return
		}
	}
	c.compileQuasiPair(tmpl, depth)
}

// compileQuasiPair rebuilds one cons cell of the template. A left
// element shaped `(unquote-splicing expr)` at depth 1 splices expr's
// elements into the tail instead of consing expr itself on.
func (c *Compiler) compileQuasiPair(pr Ref, depth int) {
	obj := c.vm.arena.Get(pr)
	left, right := obj.left, obj.right

	if depth == 1 && !left.IsNull() {
		lobj := c.vm.arena.Get(left)
		if lobj.hdr.kind == KindPair {
			if sym, ok := c.symOf(lobj.left); ok && sym == SymUnquoteSplicing {
				spliceExpr := c.vm.arena.Get(lobj.right).left
				c.markImpure()
				c.compile(spliceExpr, false)
				c.compileQuasiquote(right, depth)
				c.emitU16Op(OpListConcat, 2)
				return
			}
		}
	}

	c.compileQuasiquote(left, depth)
	c.compileQuasiquote(right, depth)
	c.emit(OpPair)
}

// rebuildTaggedList reconstructs `(tagSym inner)` as literal run-time
// data — used when a nested quasiquote/unquote must be preserved as
// structure rather than acted on, because depth no longer puts it at
// the active nesting level.
func (c *Compiler) rebuildTaggedList(tagSym SymbolName, inner Ref, depth int) {
	tagVal := c.vm.newSymbolValue(tagSym)
	c.compileConstant(tagVal)
	c.compileQuasiquote(inner, depth)
	c.emit(OpNull)
	c.emit(OpPair)
	c.emit(OpPair)
}

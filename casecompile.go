package slang

// compileCase lowers `case` into the precomputed CASE_JUMP dispatch
// table spec.md §4.5 describes: the key expression is evaluated once,
// and every literal key across every clause is resolved at compile
// time (case keys are never evaluated — they are the literal symbols/
// numbers already sitting in the parsed tree) into one flat table
// with a default branch for `else` or, absent one, a synthetic Null
// fallback.
func (c *Compiler) compileCase(form, rest Ref, tail bool) {
	items := c.items(rest)
	if len(items) < 1 {
		c.errorf(form, CaseError, "case requires a value expression")
		c.emit(OpNull)
		return
	}
	c.compile(items[0], false)

	idx := len(c.program.Cases)
	c.program.Cases = append(c.program.Cases, CaseTable{})
	opStart := c.emitU32Op(OpCaseJump, uint32(idx))

	var endJumps []int
	sawElse := false
	for _, cl := range items[1:] {
		clItems := c.items(cl)
		if len(clItems) == 0 {
			continue
		}
		keysForm, body := clItems[0], clItems[1:]
		target := len(c.ctx.code) - opStart

		if sym, ok := c.symOf(keysForm); ok && sym == symElse {
			c.program.Cases[idx].Default = target
			sawElse = true
			c.compileBody(body, tail)
			endJumps = append(endJumps, c.emitJump(OpJump))
			break
		}

		for _, k := range c.items(keysForm) {
			kobj := c.vm.arena.Get(k)
			if !kobj.isHashable() {
				c.errorf(form, CaseError, "case key of kind %s cannot be compared", kobj.hdr.kind)
				continue
			}
			for _, existing := range c.program.Cases[idx].Keys {
				if c.vm.valuesEqual(existing, k) {
					c.errorf(form, CaseError, "duplicate case key")
				}
			}
			c.vm.markConst(k)
			c.program.Cases[idx].Keys = append(c.program.Cases[idx].Keys, k)
			c.program.Cases[idx].Hashes = append(c.program.Cases[idx].Hashes, c.vm.hashValue(k))
			c.program.Cases[idx].Targets = append(c.program.Cases[idx].Targets, target)
		}
		c.compileBody(body, tail)
		endJumps = append(endJumps, c.emitJump(OpJump))
	}

	if !sawElse {
		c.program.Cases[idx].Default = len(c.ctx.code) - opStart
		c.emit(OpNull)
	}
	for _, p := range endJumps {
		c.patchJump(p)
	}
}

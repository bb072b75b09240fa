package slang

// This file implements the Env block chain described in spec.md
// §3.4: an inline array of up to EnvBlockSize (symbol,value) pairs,
// a `next` link for spillover blocks in the same lexical scope, and
// a `parent` link for lexical nesting. A symbol bound in this chain
// is found by linear scan through `next` blocks before recursing into
// `parent` — exactly the original slang.cpp Env::GetSymbol contract.

func (vm *VM) newEnv(parent Ref) Ref {
	r := vm.allocObject(KindEnv)
	obj := vm.arena.Get(r)
	obj.parent = parent
	obj.next = NullRef
	obj.hdr.size = 0
	return r
}

// envDefine binds sym to val in the head block of env's chain,
// allocating a spillover block if the head block is full. This
// mirrors spec.md §3.4's invariant: new bindings land in the first
// block with room, not necessarily the very first one ever
// allocated, since chained blocks are all "this scope".
func (vm *VM) envDefine(env Ref, sym SymbolName, val Ref) {
	cur := env
	for {
		obj := vm.arena.Get(cur)
		n := int(obj.hdr.size)
		for i := 0; i < n; i++ {
			if obj.envSlots[i].sym == sym {
				obj.envSlots[i].val = val
				return
			}
		}
		if n < EnvBlockSize {
			obj.envSlots[n] = envSlot{sym: sym, val: val}
			obj.hdr.size = uint32(n + 1)
			return
		}
		if obj.next.IsNull() {
			next := vm.newEnv(NullRef)
			obj = vm.arena.Get(cur) // allocation may have reallocated the arena slice
			obj.next = next
		}
		cur = vm.arena.Get(cur).next
	}
}

// envGet searches env's block chain, then its parent chain, for sym.
func (vm *VM) envGet(env Ref, sym SymbolName) (Ref, bool) {
	for !env.IsNull() {
		obj := vm.arena.Get(env)
		block := env
		for !block.IsNull() {
			b := vm.arena.Get(block)
			n := int(b.hdr.size)
			for i := 0; i < n; i++ {
				if b.envSlots[i].sym == sym {
					return b.envSlots[i].val, true
				}
			}
			block = b.next
		}
		env = obj.parent
	}
	return NullRef, false
}

// envSet mirrors envGet but mutates an existing binding in place; it
// reports whether sym was found anywhere in the chain.
func (vm *VM) envSet(env Ref, sym SymbolName, val Ref) bool {
	for !env.IsNull() {
		block := env
		parent := vm.arena.Get(env).parent
		for !block.IsNull() {
			b := vm.arena.Get(block)
			n := int(b.hdr.size)
			for i := 0; i < n; i++ {
				if b.envSlots[i].sym == sym {
					b.envSlots[i].val = val
					return true
				}
			}
			block = b.next
		}
		env = parent
	}
	return false
}

// envSlotAt returns the i'th logically-ordered binding's value,
// walking spillover blocks; used by the GET_LOCAL/GET_REC fast path
// when the current frame's lambda needed a heap env (closure flag).
func (vm *VM) envSlotAt(env Ref, idx int) Ref {
	block, slot := idx/EnvBlockSize, idx%EnvBlockSize
	cur := env
	for i := 0; i < block; i++ {
		cur = vm.arena.Get(cur).next
	}
	return vm.arena.Get(cur).envSlots[slot].val
}

func (vm *VM) envSetSlotAt(env Ref, idx int, val Ref) {
	block, slot := idx/EnvBlockSize, idx%EnvBlockSize
	cur := env
	for i := 0; i < block; i++ {
		cur = vm.arena.Get(cur).next
	}
	vm.arena.Get(cur).envSlots[slot].val = val
}

package slang

// This file implements the Cheney-style semispace collector described
// in spec.md §4.1. `Arena.curr`/`Arena.other` stand in for
// currSet/otherSet; since Go slice indices replace raw pointers, the
// "forwarding pointer" the spec describes is a forwardRef field plus
// the flagForwarded bit, and "the object's byte size" is simply the
// fact that `object` is a fixed-size struct (no per-kind size math is
// needed to know how far to advance — every slot is one `object`).

// forwardRef lives outside `object`'s normal fields so it can't be
// confused with a kind-specific Ref; it is only meaningful when
// flagForwarded is set.
type gcExtra struct {
	forwardRef Ref
}

// RunGC performs one Cheney collection, then applies the resize
// policy from spec.md §4.1. ensure is the number of additional
// objects the caller is about to allocate; RunGC grows the arena if,
// after collecting, there still isn't room.
func (a *Arena) RunGC(roots []*Ref, ensure int) {
	a.collect(roots)
	a.collections++

	remaining := a.limit - len(a.curr)
	quarter := a.limit / 4
	if remaining < quarter || ensure > remaining {
		newLimit := grow(a.limit, ensure, a.smallSet)
		// a large live set can outrun the 1.5x step; keep headroom so
		// the very next safe point doesn't immediately collect again
		if newLimit < (len(a.curr)+ensure)*2 {
			newLimit = (len(a.curr) + ensure) * 2
		}
		a.limit = newLimit
		return
	}

	empty := a.limit - len(a.curr)
	if empty*8 > a.limit*7 && a.limit > 4*a.smallSet {
		newLimit := a.limit / 2
		if newLimit < a.smallSet {
			newLimit = a.smallSet
		}
		if newLimit < len(a.curr) {
			newLimit = len(a.curr)
		}
		a.limit = newLimit
	}
}

func grow(oldSize, request, smallSet int) int {
	candidate := int(float64(oldSize)*1.5) + 2*request
	minGrowth := smallSet * 2
	if candidate < minGrowth {
		return minGrowth
	}
	return candidate
}

// collect is step 1-4 of spec.md §4.1's Cheney algorithm.
func (a *Arena) collect(roots []*Ref) {
	if cap(a.other) < len(a.curr) {
		a.other = make([]object, 0, len(a.curr))
	} else {
		a.other = a.other[:0]
	}

	write := 0
	for _, rootPtr := range roots {
		*rootPtr = a.evacuate(*rootPtr, &write)
	}

	read := 0
	for read < write {
		a.visit(&a.other[read], &write)
		read++
	}

	a.runFinalizers()

	oldCurr := a.curr
	a.curr = a.other[:write]
	a.other = oldCurr[:0]
}

// evacuate copies the object r points at (in the old curr space)
// into other[*write], stamping the original with a forwarding
// pointer, and returns the new Ref. Following forwarding pointers
// already installed (by an earlier root/edge reaching the same
// object) is what keeps shared structure shared after collection.
func (a *Arena) evacuate(r Ref, write *int) Ref {
	if r.IsNull() {
		return r
	}
	old := &a.curr[r]
	if old.hdr.has(flagForwarded) {
		return old.gc.forwardRef
	}
	newRef := Ref(*write)
	a.other = append(a.other, *old)
	*write++
	old.hdr.flags |= flagForwarded
	old.gc.forwardRef = newRef
	return newRef
}

// visit walks one already-evacuated object's outgoing references,
// evacuating each in turn and rewriting the field to the new
// address. This is the per-kind visitor spec.md §4.1 calls for.
func (a *Arena) visit(obj *object, write *int) {
	switch obj.hdr.kind {
	case KindMaybe:
		if obj.hdr.has(flagMaybeOccupied) {
			obj.maybePayload = a.evacuate(obj.maybePayload, write)
		}
	case KindPair:
		obj.left = a.evacuate(obj.left, write)
		obj.right = a.evacuate(obj.right, write)
	case KindVector, KindString:
		obj.storage = a.evacuate(obj.storage, write)
	case KindDict:
		obj.storage = a.evacuate(obj.storage, write)
		obj.table = a.evacuate(obj.table, write)
	case KindStorage:
		for i := range obj.elems {
			obj.elems[i] = a.evacuate(obj.elems[i], write)
		}
		for i := range obj.keys {
			obj.keys[i] = a.evacuate(obj.keys[i], write)
			obj.vals[i] = a.evacuate(obj.vals[i], write)
		}
	case KindEnv:
		n := int(obj.hdr.size)
		for i := 0; i < n && i < EnvBlockSize; i++ {
			obj.envSlots[i].val = a.evacuate(obj.envSlots[i].val, write)
		}
		obj.next = a.evacuate(obj.next, write)
		obj.parent = a.evacuate(obj.parent, write)
	case KindLambda:
		if obj.hdr.has(flagClosure) {
			obj.env = a.evacuate(obj.env, write)
		}
	case KindStream:
		if !obj.hdr.has(flagIsFile) {
			obj.storage = a.evacuate(obj.storage, write)
		}
	case KindDictTable, KindParams, KindInt, KindReal, KindBool, KindSymbol, KindEOF:
		// no outgoing references
	}
}

// runFinalizers compacts the finalizer list in place: any finalizer
// whose target didn't survive collection is invoked and dropped
// (spec.md §4.1 step 5, §5's file-stream close contract). It must
// run before a.curr is discarded since an unreached target's data
// (e.g. its open file handle) only still lives there.
func (a *Arena) runFinalizers() {
	kept := a.finalizers[:0]
	for _, f := range a.finalizers {
		old := &a.curr[f.target]
		if old.hdr.has(flagForwarded) {
			kept = append(kept, finalizerEntry{target: old.gc.forwardRef, fn: f.fn})
			continue
		}
		f.fn(nil, f.target)
	}
	a.finalizers = kept
}

// The original's Realloc-set (resizing without a collection, with a
// forwarding pre-pass) has no analogue here: growing or shrinking is
// just moving `limit`, since Ref indices are positions in a Go slice
// rather than addresses in a fixed byte span, and element order is
// preserved across an append-driven grow.

package slang

import (
	"math"
	"math/bits"
	"strings"
)

// Dict is a hash table: a handle (KindDict) pointing at a Storage
// object holding parallel keys/vals slices plus a DictTable object
// holding the open-addressed probe slots, per spec.md §3.1's
// "indirection behind storage" layout shared with Vector/String.
// Unlike those two, Dict needs a second indirection (the probe table)
// since keys/vals only grow by appending (a pop leaves a NullRef
// tombstone in place) while the table itself resizes independently.

const dictInitialSlots = 8

func (vm *VM) newDict() Ref {
	storage := vm.allocObject(KindStorage)
	table := vm.allocObject(KindDictTable)
	slots := make([]int32, dictInitialSlots)
	for i := range slots {
		slots[i] = -1
	}
	vm.arena.Get(table).slots = slots

	r := vm.allocObject(KindDict)
	obj := vm.arena.Get(r)
	obj.storage = storage
	obj.table = table
	return r
}

func (vm *VM) newDictFrom(pairs []Ref) Ref {
	d := vm.newDict()
	for i := 0; i+1 < len(pairs); i += 2 {
		vm.dictSet(d, pairs[i], pairs[i+1])
	}
	return d
}

// hashValue hashes the hashable kinds structurally, mixing container
// elements with left rotations (spec.md §3.2). Int and Real hash
// their own 64-bit patterns, so hash(1) and hash(1.0) may differ even
// though `(= 1 1.0)` holds — equality only consults the hash to pick
// a bucket, never to decide.
func (vm *VM) hashValue(v Ref) uint64 {
	if v.IsNull() {
		return 0x9e3779b97f4a7c15
	}
	obj := vm.arena.Get(v)
	switch obj.hdr.kind {
	case KindInt:
		return uint64(obj.ival)
	case KindReal:
		return math.Float64bits(obj.rval)
	case KindBool:
		if obj.bval {
			return 1
		}
		return 2
	case KindSymbol:
		return uint64(obj.sym) * 0x9e3779b97f4a7c15
	case KindEOF:
		return 0xe0fe0fe0f
	case KindString:
		var h uint64 = 14695981039346656037
		for _, b := range vm.stringBytes(v) {
			h ^= uint64(b)
			h *= 1099511628211
		}
		return h
	case KindPair:
		h := bits.RotateLeft64(vm.hashValue(obj.left), 7)
		return h ^ bits.RotateLeft64(vm.hashValue(obj.right), 13) ^ 0x1157
	case KindVector:
		var h uint64 = 0x7ec
		for _, e := range vm.vectorElems(v) {
			h = bits.RotateLeft64(h, 5) ^ vm.hashValue(e)
		}
		return h
	case KindMaybe:
		if obj.hdr.has(flagMaybeOccupied) {
			return bits.RotateLeft64(vm.hashValue(obj.maybePayload), 3) ^ 0x3a15be
		}
		return 0x3a15be
	case KindLambda:
		return uint64(obj.funcIndex)<<32 ^ uint64(obj.lambdaModule) ^ 0x1a3bda
	default:
		return uint64(v)
	}
}

// dictFind returns the keys/vals index for key, or -1 if absent.
func (vm *VM) dictFind(d, key Ref) int {
	dobj := vm.arena.Get(d)
	storage := vm.arena.Get(dobj.storage)
	table := vm.arena.Get(dobj.table)
	if len(table.slots) == 0 {
		return -1
	}
	h := vm.hashValue(key)
	n := len(table.slots)
	for i := 0; i < n; i++ {
		slot := int((h + uint64(i)) % uint64(n))
		idx := table.slots[slot]
		if idx == -1 {
			return -1
		}
		if idx >= 0 && int(idx) < len(storage.keys) && !storage.keys[idx].IsNull() && vm.valuesEqual(storage.keys[idx], key) {
			return int(idx)
		}
	}
	return -1
}

func (vm *VM) dictGet(d, key Ref) (Ref, bool) {
	idx := vm.dictFind(d, key)
	if idx < 0 {
		return NullRef, false
	}
	storage := vm.arena.Get(vm.arena.Get(d).storage)
	return storage.vals[idx], true
}

func (vm *VM) dictSet(d, key, val Ref) {
	if idx := vm.dictFind(d, key); idx >= 0 {
		storage := vm.arena.Get(vm.arena.Get(d).storage)
		storage.vals[idx] = val
		return
	}
	dobj := vm.arena.Get(d)
	storage := vm.arena.Get(dobj.storage)
	table := vm.arena.Get(dobj.table)

	if (len(storage.keys)+1)*2 > len(table.slots) {
		vm.dictGrow(d)
		dobj = vm.arena.Get(d)
		storage = vm.arena.Get(dobj.storage)
		table = vm.arena.Get(dobj.table)
	}

	newIdx := int32(len(storage.keys))
	storage.keys = append(storage.keys, key)
	storage.vals = append(storage.vals, val)

	h := vm.hashValue(key)
	n := len(table.slots)
	for i := 0; i < n; i++ {
		slot := int((h + uint64(i)) % uint64(n))
		if table.slots[slot] == -1 {
			table.slots[slot] = newIdx
			break
		}
	}
	dobj.hdr.size = uint32(len(storage.keys))
}

func (vm *VM) dictPop(d, key Ref) {
	idx := vm.dictFind(d, key)
	if idx < 0 {
		return
	}
	dobj := vm.arena.Get(d)
	storage := vm.arena.Get(dobj.storage)
	table := vm.arena.Get(dobj.table)
	storage.keys[idx] = NullRef
	storage.vals[idx] = NullRef
	for i := range table.slots {
		if int(table.slots[i]) == idx {
			// -2 marks a vacated slot: probing continues past it, so
			// keys stored further along the same chain stay reachable.
			table.slots[i] = -2
		}
	}
}

func (vm *VM) dictGrow(d Ref) {
	dobj := vm.arena.Get(d)
	storage := vm.arena.Get(dobj.storage)
	table := vm.arena.Get(dobj.table)
	newSlots := make([]int32, len(table.slots)*2)
	for i := range newSlots {
		newSlots[i] = -1
	}
	table.slots = newSlots
	n := len(newSlots)
	for i, k := range storage.keys {
		if k.IsNull() {
			continue
		}
		h := vm.hashValue(k)
		for j := 0; j < n; j++ {
			slot := int((h + uint64(j)) % uint64(n))
			if table.slots[slot] == -1 {
				table.slots[slot] = int32(i)
				break
			}
		}
	}
}

func (vm *VM) strSplit(s, sep string) Ref {
	parts := strings.Split(s, sep)
	items := make([]Ref, len(parts))
	for i, p := range parts {
		items[i] = vm.newString(p)
	}
	return vm.sliceToList(items)
}

func (vm *VM) strJoin(lst Ref, sep string) Ref {
	items := vm.listToSlice(lst)
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = vm.stringValue(it)
	}
	return vm.newString(strings.Join(parts, sep))
}

package slang

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictSetGetAcrossRehash(t *testing.T) {
	vm := NewVM(nil)
	d := vm.newDict()
	vm.push(d)

	for i := 0; i < 100; i++ {
		vm.dictSet(vm.top(), vm.newInt(int64(i)), vm.newInt(int64(i*i)))
	}
	for i := 0; i < 100; i++ {
		v, ok := vm.dictGet(vm.top(), vm.newInt(int64(i)))
		require.True(t, ok, "key %d", i)
		assert.Equal(t, int64(i*i), vm.arena.Get(v).ival)
	}
}

func TestDictOverwrite(t *testing.T) {
	vm := NewVM(nil)
	d := vm.newDict()
	vm.push(d)
	k := vm.newString("k")
	vm.dictSet(d, k, vm.newInt(1))
	vm.dictSet(d, vm.newString("k"), vm.newInt(2))
	v, ok := vm.dictGet(d, k)
	require.True(t, ok)
	assert.Equal(t, int64(2), vm.arena.Get(v).ival)
}

func TestDictPop(t *testing.T) {
	vm := NewVM(nil)
	d := vm.newDict()
	vm.push(d)
	k := vm.newSymbolValue(vm.symbols.Intern("gone"))
	vm.dictSet(d, k, vm.newInt(1))
	vm.dictPop(d, k)
	_, ok := vm.dictGet(d, k)
	assert.False(t, ok)
}

func TestDictStructuralKeys(t *testing.T) {
	vm := NewVM(nil)
	d := vm.newDict()
	vm.push(d)
	k1 := vm.sliceToList([]Ref{vm.newInt(1), vm.newInt(2)})
	vm.dictSet(d, k1, vm.newString("hit"))

	// a structurally equal but distinct list finds the same slot
	k2 := vm.sliceToList([]Ref{vm.newInt(1), vm.newInt(2)})
	v, ok := vm.dictGet(d, k2)
	require.True(t, ok)
	assert.Equal(t, "hit", vm.stringValue(v))
}

func TestDictSurvivesCollection(t *testing.T) {
	vm := tinyVM()
	d := vm.newDict()
	vm.push(d)
	for i := 0; i < 30; i++ {
		vm.dictSet(vm.top(), vm.newString(fmt.Sprintf("key-%d", i)), vm.newInt(int64(i)))
	}
	vm.arena.RunGC(vm.Roots(), 0)
	for i := 0; i < 30; i++ {
		v, ok := vm.dictGet(vm.top(), vm.newString(fmt.Sprintf("key-%d", i)))
		require.True(t, ok, "key-%d lost after collection", i)
		assert.Equal(t, int64(i), vm.arena.Get(v).ival)
	}
}

func TestHashIntRealDiffer(t *testing.T) {
	vm := NewVM(nil)
	i := vm.newInt(1)
	r := vm.newReal(1.0)
	// `(= 1 1.0)` holds...
	assert.True(t, vm.valuesEqual(i, r))
	// ...while their hashes are allowed to differ (spec.md §3.2)
	assert.NotEqual(t, vm.hashValue(i), vm.hashValue(r))
}

func TestHashStructural(t *testing.T) {
	vm := NewVM(nil)
	a := vm.sliceToList([]Ref{vm.newInt(1), vm.newString("x")})
	b := vm.sliceToList([]Ref{vm.newInt(1), vm.newString("x")})
	assert.Equal(t, vm.hashValue(a), vm.hashValue(b))
}

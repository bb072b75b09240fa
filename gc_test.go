package slang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tinyVM builds a VM whose arena starts small enough that any real
// program forces several collections.
func tinyVM() *VM {
	cfg := NewConfig()
	cfg.SetInt("gc.small_set_bytes", 32*64)
	return NewVM(cfg)
}

func TestGCSurvivesAllocationPressure(t *testing.T) {
	vm := tinyVM()
	mod, err := vm.LoadModule("test", `
		(def (build n acc)
			(if (= n 0) acc (build (- n 1) (pair n acc))))
		(left (build 500 '()))
	`)
	require.NoError(t, err)
	result, err := vm.Eval(mod)
	require.NoError(t, err)
	assert.Equal(t, "1", vm.Display(result))
	assert.Greater(t, vm.arena.collections, 0, "expected the arena to collect under pressure")
}

func TestGCPreservesSharing(t *testing.T) {
	vm := tinyVM()
	shared := vm.newPair(vm.newInt(1), NullRef)
	outer := vm.newPair(shared, shared)
	vm.push(outer)

	vm.arena.RunGC(vm.Roots(), 0)

	outer = vm.pop()
	obj := vm.arena.Get(outer)
	assert.Equal(t, obj.left, obj.right, "shared structure must stay shared after evacuation")
	assert.Equal(t, int64(1), vm.arena.Get(vm.arena.Get(obj.left).left).ival)
}

func TestGCNoForwardedObjectsAfterCollection(t *testing.T) {
	vm := tinyVM()
	for i := 0; i < 100; i++ {
		r := vm.newInt(int64(i))
		if i%10 == 0 {
			vm.push(r)
		}
	}
	vm.arena.RunGC(vm.Roots(), 0)
	for i := range vm.arena.curr {
		assert.False(t, vm.arena.curr[i].hdr.has(flagForwarded),
			"no object in the new current set may carry a forwarding mark")
	}
	// only the rooted objects survive
	assert.Equal(t, 10, len(vm.arena.curr))
}

func TestGCRewritesRoots(t *testing.T) {
	vm := tinyVM()
	for i := 0; i < 50; i++ {
		vm.newInt(int64(i)) // garbage
	}
	keep := vm.newInt(77)
	vm.push(keep)
	vm.arena.RunGC(vm.Roots(), 0)
	got := vm.pop()
	assert.Equal(t, int64(77), vm.arena.Get(got).ival)
}

func TestFinalizerRunsExactlyOnceWhenUnreachable(t *testing.T) {
	vm := tinyVM()
	calls := 0

	dead := vm.newInt(1)
	vm.arena.finalizers = append(vm.arena.finalizers, finalizerEntry{
		target: dead,
		fn:     func(*VM, Ref) { calls++ },
	})

	live := vm.newInt(2)
	liveCalls := 0
	vm.arena.finalizers = append(vm.arena.finalizers, finalizerEntry{
		target: live,
		fn:     func(*VM, Ref) { liveCalls++ },
	})
	vm.push(live)

	vm.arena.RunGC(vm.Roots(), 0)
	assert.Equal(t, 1, calls, "dead target's finalizer fires on the collection that drops it")
	assert.Equal(t, 0, liveCalls, "live target's finalizer must not fire")
	require.Len(t, vm.arena.finalizers, 1)

	// the surviving entry's target was forwarded with the object
	target := vm.arena.finalizers[0].target
	assert.Equal(t, int64(2), vm.arena.Get(target).ival)

	vm.arena.RunGC(vm.Roots(), 0)
	assert.Equal(t, 1, calls, "a finalizer never fires twice")

	// drop the last root; next collection fires the remaining one
	vm.pop()
	vm.arena.RunGC(vm.Roots(), 0)
	assert.Equal(t, 1, liveCalls)
	assert.Len(t, vm.arena.finalizers, 0)
}

func TestArenaGrowsAndShrinks(t *testing.T) {
	a := NewArena(64)
	assert.False(t, a.needsGC(0))
	a.alloc(65)
	assert.True(t, a.needsGC(0))

	// everything is garbage: collect with no roots, then the limit
	// stays near the small set
	a.RunGC(nil, 0)
	assert.Equal(t, 0, len(a.curr))
	assert.GreaterOrEqual(t, a.limit, 64)
}

func TestEnvChainsSurviveCollection(t *testing.T) {
	vm := tinyVM()
	env := vm.newEnv(NullRef)
	vm.push(env)
	// overflow the inline block so a spillover `next` block exists
	for i := 0; i < EnvBlockSize+2; i++ {
		sym := vm.symbols.Intern(string(rune('a' + i)))
		vm.envDefine(vm.top(), sym, vm.newInt(int64(i)))
	}
	vm.arena.RunGC(vm.Roots(), 0)
	env = vm.pop()
	sym := vm.symbols.Intern("f") // the 6th binding
	val, ok := vm.envGet(env, sym)
	require.True(t, ok)
	assert.Equal(t, int64(5), vm.arena.Get(val).ival)
}

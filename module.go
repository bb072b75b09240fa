package slang

import (
	"os"
	"path/filepath"
	"strings"
)

// BuiltinModule is the contract spec.md §9 asks built-in modules
// (file/time/random/gc) to satisfy: a name matched against the second
// component of `(import (slang <name>))`, and a set of bindings
// materialized into the importing module's global env. Only `gc` is
// implemented as a concrete instance here; file/time/random are
// described at this same interface but left unimplemented per
// spec.md's explicit Non-goals.
type BuiltinModule interface {
	Name() string
	Bindings(vm *VM) map[string]Ref
}

func registerDefaultBuiltinModules(vm *VM) {
	registerBuiltinModule(vm, gcModule{})
}

func registerBuiltinModule(vm *VM, m BuiltinModule) {
	sym := vm.symbols.Intern(m.Name())
	vm.builtinModules[sym] = m
}

// gcModule exposes the collector's externally visible contract as a
// pair of native procedures: `collect` forces an immediate Cheney
// pass, `collections` reports how many collections have run.
type gcModule struct{}

func (gcModule) Name() string { return "gc" }

func (gcModule) Bindings(vm *VM) map[string]Ref {
	return map[string]Ref{
		"collect": vm.newNativeProc(func(vm *VM) (Ref, error) {
			vm.arena.RunGC(vm.Roots(), 0)
			return NullRef, nil
		}),
		"collections": vm.newNativeProc(func(vm *VM) (Ref, error) {
			return vm.newInt(int64(vm.arena.collections)), nil
		}),
	}
}

func (vm *VM) newNativeProc(fn NativeFunc) Ref {
	r := vm.allocObject(KindLambda)
	obj := vm.arena.Get(r)
	obj.hdr.flags |= flagExternal
	obj.native = fn
	return r
}

// exportSymbol copies sym's current binding from a module's global
// env into its exportEnv and records it, so a later importer only
// ever sees the names the module actually chose to export (spec.md
// §4.5's `export` semantics).
func (vm *VM) exportSymbol(moduleIndex int, sym SymbolName) {
	mod := vm.modules[moduleIndex]
	val, _ := vm.envGet(mod.globalEnv, sym)
	vm.envDefine(mod.exportEnv, sym, val)
	if mod.exported == nil {
		mod.exported = make(map[SymbolName]bool)
	}
	mod.exported[sym] = true
}

// importModule resolves an `(import (...))` path. When the first
// component is the reserved symbol "slang", the remainder names a
// built-in module (spec.md §9's Design Notes resolve the Open
// Question in favor of filesystem resolution taking priority over
// the builtin registry whenever both could apply — but `(slang X)`
// is only ever a builtin-module request, so there's nothing to
// prefer filesystem resolution over in that specific case). Any other
// path is resolved against module.search_paths on disk.
func (vm *VM) importModule(intoModuleIndex int, path []SymbolName) error {
	if len(path) == 0 {
		return vm.runtimeError(ImportError, "empty import path")
	}
	slangSym, _ := vm.symbols.Lookup("slang")
	if path[0] == slangSym && len(path) == 2 {
		return vm.importBuiltinModule(intoModuleIndex, path[1])
	}
	return vm.importFileModule(intoModuleIndex, path)
}

func (vm *VM) importBuiltinModule(intoModuleIndex int, nameSym SymbolName) error {
	bm, ok := vm.builtinModules[nameSym]
	if !ok {
		return vm.runtimeError(ImportError, "no such builtin module %s", vm.symbols.String(nameSym))
	}
	into := vm.modules[intoModuleIndex]
	for name, val := range bm.Bindings(vm) {
		vm.envDefine(into.globalEnv, vm.symbols.Intern(name), val)
	}
	return nil
}

func (vm *VM) importFileModule(intoModuleIndex int, path []SymbolName) error {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = vm.symbols.String(p)
	}
	rel := filepath.Join(parts...) + ".sl"

	searchPaths := vm.config.GetString("module.search_paths")
	var resolved string
	for _, dir := range strings.Split(searchPaths, ":") {
		candidate := filepath.Join(dir, rel)
		if _, err := os.Stat(candidate); err == nil {
			resolved = candidate
			break
		}
	}
	if resolved == "" {
		return vm.runtimeError(ImportError, "cannot find module %q on module.search_paths", rel)
	}

	for _, m := range vm.modules {
		if m.name == resolved {
			return vm.mergeExports(intoModuleIndex, m)
		}
	}

	src, err := os.ReadFile(resolved)
	if err != nil {
		return vm.runtimeError(FileError, "%v", err)
	}
	mod, err := vm.LoadModule(resolved, string(src))
	if err != nil {
		return err
	}

	// the imported module runs as a nested extent of the importing
	// one: save and restore the outer execution state around it, and
	// floor try-recovery so the import's errors propagate out rather
	// than landing in one of the importer's try frames mid-flight.
	savedHalted, savedHaltValue, savedPC := vm.halted, vm.haltValue, vm.pc
	savedFloor := vm.tryFloor
	vm.tryFloor = len(vm.tryFrames)
	_, evalErr := vm.Eval(mod)
	vm.tryFloor = savedFloor
	vm.halted, vm.haltValue, vm.pc = savedHalted, savedHaltValue, savedPC
	if evalErr != nil {
		return evalErr
	}
	return vm.mergeExports(intoModuleIndex, mod)
}

func (vm *VM) mergeExports(intoModuleIndex int, from *loadedModule) error {
	into := vm.modules[intoModuleIndex]
	for sym := range from.exported {
		val, _ := vm.envGet(from.exportEnv, sym)
		vm.envDefine(into.globalEnv, sym, val)
	}
	return nil
}

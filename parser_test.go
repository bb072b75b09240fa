package slang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) (*VM, Ref) {
	t.Helper()
	vm := NewVM(nil)
	p := NewParser(vm, "test", src)
	forms, err := p.ParseTopLevel()
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return vm, forms[0]
}

// read ∘ print is identity on the atoms spec.md §8.2 names (strings
// modulo the surrounding quotes, since Display renders content).
func TestReadPrintRoundTrip(t *testing.T) {
	for _, src := range []string{"42", "-7", "true", "false", "()", "foo", "1.5", "(1 2 3)", "(1 . 2)", "#(1 2)"} {
		vm, form := parseOne(t, src)
		assert.Equal(t, src, vm.Display(form), src)
	}
	vm, form := parseOne(t, `"abc"`)
	assert.Equal(t, "abc", vm.Display(form))
}

func TestParseQuoteSugar(t *testing.T) {
	vm, form := parseOne(t, "'(1 2)")
	assert.Equal(t, "(quote (1 2))", vm.Display(form))

	vm, form = parseOne(t, "`(a ,b @c)")
	assert.Equal(t, "(quasiquote (a (unquote b) (unquote-splicing c)))", vm.Display(form))
}

func TestParsePrefixSugar(t *testing.T) {
	vm, form := parseOne(t, "!ready")
	assert.Equal(t, "(not ready)", vm.Display(form))

	vm, form = parseOne(t, "-n")
	assert.Equal(t, "(- n)", vm.Display(form))

	vm, form = parseOne(t, "/n")
	assert.Equal(t, "(/ n)", vm.Display(form))
}

func TestParseDottedPair(t *testing.T) {
	vm, form := parseOne(t, "(a b . c)")
	assert.Equal(t, "(a b . c)", vm.Display(form))
}

func TestParseVectorLiteral(t *testing.T) {
	vm, form := parseOne(t, "#(1 (2 3) #(4))")
	assert.Equal(t, "#(1 (2 3) #(4))", vm.Display(form))
	obj := vm.arena.Get(form)
	assert.Equal(t, KindVector, obj.hdr.kind)
}

func TestParseBracketMismatch(t *testing.T) {
	vm := NewVM(nil)
	for _, src := range []string{"(a]", "[a)", "{a]", "(a", "a)"} {
		p := NewParser(vm, "test", src)
		_, err := p.ParseTopLevel()
		require.Error(t, err, src)
	}
}

func TestParseLocations(t *testing.T) {
	vm := NewVM(nil)
	p := NewParser(vm, "mod", "(a\n  (b))")
	forms, err := p.ParseTopLevel()
	require.NoError(t, err)
	loc, ok := p.Locations[forms[0]]
	require.True(t, ok)
	assert.Equal(t, "mod", loc.ModuleName)
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 1, loc.Col)

	inner := vm.arena.Get(vm.arena.Get(forms[0]).right).left
	loc, ok = p.Locations[inner]
	require.True(t, ok)
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 3, loc.Col)
}

func TestParseTopLevelMultipleForms(t *testing.T) {
	vm := NewVM(nil)
	p := NewParser(vm, "test", "1 2 (+ 1 2)")
	forms, err := p.ParseTopLevel()
	require.NoError(t, err)
	assert.Len(t, forms, 3)
}

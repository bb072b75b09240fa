package slang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStreamWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	vm := NewVM(nil)
	mod, err := vm.LoadModule("test", `
		(let ((out (open "`+path+`" "w")))
			(write out "hello")
			(close out))
		(let ((in (open "`+path+`" "r")))
			(let ((line (read-line in)))
				(close in)
				line))
	`)
	require.NoError(t, err)
	result, err := vm.Eval(mod)
	require.NoError(t, err)
	assert.Equal(t, "hello", vm.Display(result))
}

func TestReadPastEndYieldsEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	vm := NewVM(nil)
	mod, err := vm.LoadModule("test", `
		(let ((in (open "`+path+`" "r")))
			(let ((v (read in)))
				(close in)
				(eof? v)))
	`)
	require.NoError(t, err)
	result, err := vm.Eval(mod)
	require.NoError(t, err)
	assert.Equal(t, "true", vm.Display(result))
}

func TestOpenMissingFileIsFileError(t *testing.T) {
	_, err := run(t, `(open "/no/such/file.txt" "r")`)
	require.Error(t, err)
	serr, ok := err.(*SlangError)
	require.True(t, ok)
	assert.Equal(t, FileError, serr.Kind)
}

func TestStreamFinalizerClosesDroppedHandle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leak.txt")

	vm := NewVM(nil)
	_, err := vm.openFile(path, "w")
	require.NoError(t, err)
	require.Len(t, vm.arena.finalizers, 1)

	// the stream was never pushed anywhere: the next collection must
	// fire its finalizer and drop the entry
	vm.arena.RunGC(vm.Roots(), 0)
	assert.Len(t, vm.arena.finalizers, 0)
}

func TestDoubleCloseIsHarmless(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "twice.txt")
	got := mustRun(t, `
		(let ((out (open "`+path+`" "w")))
			(close out)
			(close out)
			'ok)
	`)
	assert.Equal(t, "ok", got)
}

package slang

import (
	"bufio"
	"os"
)

// streamState backs a KindStream object: either an OS file (flagIsFile
// set on the header) or an in-memory string stream built over a
// Storage object's byte buffer. Closing a file stream is also
// registered as an arena finalizer (gc.go) so a stream that becomes
// unreachable without an explicit `close` still releases its handle,
// matching spec.md §5's resource-cleanup contract.
type streamState struct {
	file   *os.File
	reader *bufio.Reader
	writer *bufio.Writer
	pos    int // read cursor for string streams
	closed bool
}

func (vm *VM) openFile(path, mode string) (Ref, error) {
	var flag int
	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case "a":
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return NullRef, vm.runtimeError(StreamError, "unknown open mode %q", mode)
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return NullRef, vm.runtimeError(FileError, "%v", err)
	}

	r := vm.allocObject(KindStream)
	obj := vm.arena.Get(r)
	obj.hdr.flags |= flagIsFile
	st := &streamState{file: f}
	if mode == "r" {
		st.reader = bufio.NewReader(f)
	} else {
		st.writer = bufio.NewWriter(f)
	}
	obj.stream = st

	vm.arena.finalizers = append(vm.arena.finalizers, finalizerEntry{
		target: r,
		fn: func(_ *VM, _ Ref) {
			if st.writer != nil {
				st.writer.Flush()
			}
			f.Close()
		},
	})
	return r, nil
}

func (vm *VM) closeStream(r Ref) (Ref, error) {
	obj := vm.arena.Get(r)
	st := obj.stream
	if st == nil || st.closed {
		return NullRef, nil
	}
	st.closed = true
	if st.writer != nil {
		st.writer.Flush()
	}
	if st.file != nil {
		st.file.Close()
	}
	// an explicitly closed stream no longer needs its safety net
	kept := vm.arena.finalizers[:0]
	for _, f := range vm.arena.finalizers {
		if f.target != r {
			kept = append(kept, f)
		}
	}
	vm.arena.finalizers = kept
	return NullRef, nil
}

func (vm *VM) readStream(r Ref) (Ref, error) {
	obj := vm.arena.Get(r)
	st := obj.stream
	if st == nil || st.reader == nil {
		return NullRef, vm.runtimeError(StreamError, "stream not open for reading")
	}
	b, err := st.reader.ReadByte()
	if err != nil {
		return vm.newEOF(), nil
	}
	return vm.newInt(int64(b)), nil
}

func (vm *VM) readLineStream(r Ref) (Ref, error) {
	obj := vm.arena.Get(r)
	st := obj.stream
	if st == nil || st.reader == nil {
		return NullRef, vm.runtimeError(StreamError, "stream not open for reading")
	}
	line, err := st.reader.ReadString('\n')
	if line == "" && err != nil {
		return vm.newEOF(), nil
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return vm.newString(line), nil
}

func (vm *VM) writeStream(r, val Ref) (Ref, error) {
	obj := vm.arena.Get(r)
	st := obj.stream
	if st == nil || st.writer == nil {
		return NullRef, vm.runtimeError(StreamError, "stream not open for writing")
	}
	st.writer.WriteString(vm.displayString(val))
	return val, nil
}

func (vm *VM) printValues(vals []Ref) (Ref, error) {
	for i, v := range vals {
		if i > 0 {
			os.Stdout.WriteString(" ")
		}
		os.Stdout.WriteString(vm.displayString(v))
	}
	os.Stdout.WriteString("\n")
	return NullRef, nil
}

func (vm *VM) newEOF() Ref { return vm.allocObject(KindEOF) }

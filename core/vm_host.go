package core

// Contract VM host. Instantiates a wasm module per invocation, owns the
// guest's linear memory itself, binds a narrow host ABI under the guest's
// "env" namespace, places calldata into that memory with a fixed
// small-header convention, and calls a no-argument "entrypoint" export.
//
// Grounded directly on the teacher's HeavyVM.Execute/registerHost
// (core/virtual_machine.go): same engine/store/module/instance lifecycle,
// same deferred-memory-init trick (hostCtx built with mem == nil, host
// function closures capture the *hostCtx pointer, the memory is written into
// it only after it is constructed), same "env" import namespace and
// wasmer.NewFunction/wasmer.NewFunctionType shape — the host ABI itself is
// rebound from host_consume_gas/host_read/host_write/host_log to
// get_storage/set_storage/print (no gas metering). Unlike the
// teacher, which reads back whatever memory the guest happens to export,
// the host here constructs the linear memory itself and binds it into the
// guest's env namespace, mirroring the original Rust host's
// `Memory::new(&mut store, MemoryType::new(min, max))` plus
// `linker.define("env", "memory", memory)`.

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wasmerio/wasmer-go/wasmer"
)

const (
	calldataLenOffset  = 4
	calldataLenWidth   = 32
	calldataDataOffset = 36
)

// VMConfig carries the wasm memory limits and calldata cap a VMHost
// enforces. Threaded in from pkg/config rather than hardcoded, so a driver
// can tune them the way the teacher's config feeds its VM.
type VMConfig struct {
	MinMemPages    uint32
	MaxMemPages    uint32
	CalldataMaxLen int
}

// DefaultVMConfig matches the page limits and calldata cap this host's ABI
// was designed against.
func DefaultVMConfig() VMConfig {
	return VMConfig{MinMemPages: 16, MaxMemPages: 32, CalldataMaxLen: 1 << 20}
}

// ContractAdapter is the storage capability a VM invocation is bound to:
// get/set over 32-byte slots, namespaced under a single contract address. An
// interface so a test harness can supply an in-memory map and the real
// executor supplies the trie-backed ExecState.
type ContractAdapter interface {
	GetStorage(addr H, key [32]byte) ([]byte, error)
	SetStorage(addr H, key [32]byte, value []byte) error
}

// Ensure *ExecState satisfies ContractAdapter — the executor is the real
// storage backend behind every production invocation.
var _ ContractAdapter = (*ExecState)(nil)

// VMHost owns the wasm engine shared across invocations. One engine per
// host, matching the teacher's NewHeavyVM(led, gas, engine) shape.
type VMHost struct {
	engine *wasmer.Engine
	cfg    VMConfig
}

// NewVMHost constructs a host with a fresh wasm engine, enforcing cfg's
// memory limits and calldata cap on every invocation.
func NewVMHost(cfg VMConfig) *VMHost {
	return &VMHost{engine: wasmer.NewEngine(), cfg: cfg}
}

// vmState is the per-invocation { ext_adapter, memory_handle } pair the host
// functions close over. mem starts nil and is filled in once the
// host-constructed memory exists — never observable as "uninitialized"
// outside Invoke.
type vmState struct {
	mem      *wasmer.Memory
	adapter  ContractAdapter
	addr     H
	logLines []string
}

// Invoke runs one contract invocation: code is parsed as a wasm module, the
// host allocates the guest's linear memory and binds it as env.memory,
// calldata is placed into that memory, and the guest's "entrypoint" export
// is called. Host calls re-enter adapter synchronously — execution is
// single-threaded and fully synchronous.
func (h *VMHost) Invoke(code, calldata []byte, addr H, adapter ContractAdapter, sandbox *SandboxTracker) ([]string, error) {
	if len(calldata) > h.cfg.CalldataMaxLen {
		return nil, &ExecError{Kind: ErrVMFailure, Msg: fmt.Sprintf("calldata exceeds %d bytes", h.cfg.CalldataMaxLen)}
	}

	if sandbox != nil {
		sandbox.Start(addr)
		defer sandbox.Stop(addr)
	}

	store := wasmer.NewStore(h.engine)
	mod, err := wasmer.NewModule(store, code)
	if err != nil {
		return nil, &ExecError{Kind: ErrVMFailure, Msg: "parse module", Err: err}
	}

	vs := &vmState{adapter: adapter, addr: addr}

	limits, err := wasmer.NewLimits(h.cfg.MinMemPages, h.cfg.MaxMemPages)
	if err != nil {
		return nil, &ExecError{Kind: ErrVMFailure, Msg: "construct memory limits", Err: err}
	}
	mem := wasmer.NewMemory(store, wasmer.NewMemoryType(limits))
	vs.mem = mem

	imports := registerHostFunctions(store, vs, mem)

	instance, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return nil, &ExecError{Kind: ErrVMFailure, Msg: "instantiate module", Err: err}
	}

	if err := placeCalldata(mem, calldata); err != nil {
		return nil, err
	}

	entrypoint, err := instance.Exports.GetFunction("entrypoint")
	if err != nil {
		return nil, &ExecError{Kind: ErrVMFailure, Msg: `guest export "entrypoint" required`, Err: err}
	}

	if err := callEntrypoint(entrypoint); err != nil {
		return vs.logLines, &ExecError{Kind: ErrVMFailure, Msg: "guest entrypoint failed", Err: err}
	}
	return vs.logLines, nil
}

// callEntrypoint isolates the trap boundary: a panicking guest must become a
// VMFailure, never a crash of the host process.
func callEntrypoint(entrypoint func(...interface{}) (interface{}, error)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("guest trapped: %v", r)
		}
	}()
	_, err = entrypoint()
	return err
}

// placeCalldata writes the fixed small-header convention into guest memory:
// length at [4, 36) little-endian, bytes at [36, 36+len). Offset 0 is
// deliberately left untouched.
func placeCalldata(mem *wasmer.Memory, calldata []byte) error {
	data := mem.Data()
	end := calldataDataOffset + len(calldata)
	if end > len(data) {
		return &ExecError{Kind: ErrVMFailure, Msg: "guest memory too small for calldata"}
	}
	var lenBuf [calldataLenWidth]byte
	binary.LittleEndian.PutUint32(lenBuf[:4], uint32(len(calldata)))
	copy(data[calldataLenOffset:calldataLenOffset+calldataLenWidth], lenBuf[:])
	copy(data[calldataDataOffset:end], calldata)
	return nil
}

// registerHostFunctions binds memory, get_storage, set_storage, and print
// into the guest's "env" namespace, following the teacher's registerHost
// shape almost line for line.
func registerHostFunctions(store *wasmer.Store, vs *vmState, mem *wasmer.Memory) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	read := func(ptr, ln int32) ([]byte, error) {
		data := vs.mem.Data()
		if ptr < 0 || ln < 0 || int(ptr)+int(ln) > len(data) {
			return nil, errors.New("out-of-bounds guest memory read")
		}
		out := make([]byte, ln)
		copy(out, data[ptr:int(ptr)+int(ln)])
		return out, nil
	}
	write := func(ptr int32, b []byte) error {
		data := vs.mem.Data()
		if ptr < 0 || int(ptr)+len(b) > len(data) {
			return errors.New("out-of-bounds guest memory write")
		}
		copy(data[ptr:], b)
		return nil
	}

	getStorage := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32), wasmer.ValueKind(wasmer.I32)),
			wasmer.NewValueTypes(),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr, outPtr := args[0].I32(), args[1].I32()
			keyBytes, err := read(keyPtr, 32)
			if err != nil {
				return nil, err
			}
			var key [32]byte
			copy(key[:], keyBytes)
			val, err := vs.adapter.GetStorage(vs.addr, key)
			if err != nil {
				return nil, err
			}
			if err := write(outPtr, val); err != nil {
				return nil, err
			}
			return []wasmer.Value{}, nil
		},
	)

	setStorage := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32), wasmer.ValueKind(wasmer.I32)),
			wasmer.NewValueTypes(),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			keyPtr, valPtr := args[0].I32(), args[1].I32()
			keyBytes, err := read(keyPtr, 32)
			if err != nil {
				return nil, err
			}
			valBytes, err := read(valPtr, 32)
			if err != nil {
				return nil, err
			}
			var key [32]byte
			copy(key[:], keyBytes)
			if err := vs.adapter.SetStorage(vs.addr, key, valBytes); err != nil {
				return nil, err
			}
			return []wasmer.Value{}, nil
		},
	)

	print := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(
			wasmer.NewValueTypes(wasmer.ValueKind(wasmer.I32), wasmer.ValueKind(wasmer.I32)),
			wasmer.NewValueTypes(),
		),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			msg, err := read(ptr, ln)
			if err != nil {
				return nil, err
			}
			line := string(msg)
			vs.logLines = append(vs.logLines, line)
			vmLog.WithField("contract", vs.addr.Hex()).Debug("guest print: ", line)
			return []wasmer.Value{}, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"memory":      mem,
		"get_storage": getStorage,
		"set_storage": setStorage,
		"print":       print,
	})

	return imports
}

var vmLog = logrus.WithField("component", "vm_host")

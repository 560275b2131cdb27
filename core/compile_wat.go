package core

// CompileWAT is the test/demo-time wat2wasm wrapper, adapted from the
// teacher's core/contracts.go CompileWASM: accepts either a .wat source
// (compiled via the external wat2wasm tool into outDir) or a .wasm binary
// read directly. Production code never calls this — contract code always
// arrives as already-compiled wasm bytes in a Deploy transaction; this
// exists purely so tests can author contracts as readable text.

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// CompileWAT returns the wasm bytes for srcPath, invoking wat2wasm if
// srcPath ends in .wat. Returns exec.ErrNotFound (wrapped) when the
// external tool isn't installed, so callers can skip rather than fail.
func CompileWAT(srcPath, outDir string) ([]byte, error) {
	switch filepath.Ext(srcPath) {
	case ".wasm":
		return os.ReadFile(srcPath)
	case ".wat":
		out := filepath.Join(outDir, filepath.Base(srcPath)+".wasm")
		cmd := exec.Command("wat2wasm", "-o", out, srcPath)
		if err := cmd.Run(); err != nil {
			return nil, err
		}
		return os.ReadFile(out)
	default:
		return nil, errors.New("unsupported contract source: must be .wat or .wasm")
	}
}

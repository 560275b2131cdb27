package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.VM.GuestMinMemPages != 16 {
		t.Fatalf("unexpected guest_min_mem_pages: %d", AppConfig.VM.GuestMinMemPages)
	}
	if AppConfig.VM.CalldataCapBytes != 1048576 {
		t.Fatalf("unexpected calldata_cap_bytes: %d", AppConfig.VM.CalldataCapBytes)
	}
	if AppConfig.Logging.Level != "info" {
		t.Fatalf("unexpected logging level: %s", AppConfig.Logging.Level)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("debug")
	if !AppConfig.VM.OpcodeDebug {
		t.Fatalf("expected opcode_debug true after debug override")
	}
	if AppConfig.Logging.Level != "debug" {
		t.Fatalf("expected logging level debug after override")
	}
}

func TestLoadConfigSandbox(t *testing.T) {
	sandboxDir := t.TempDir()
	if err := os.Mkdir(sandboxDir+"/config", 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	data := []byte("vm:\n  guest_min_mem_pages: 4\n")
	if err := os.WriteFile(sandboxDir+"/config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sandboxDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.VM.GuestMinMemPages != 4 {
		t.Fatalf("expected guest_min_mem_pages 4, got %d", AppConfig.VM.GuestMinMemPages)
	}
}

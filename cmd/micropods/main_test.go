package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/GoCodeAlone/micropods/cmd/micropods/cmd"
)

func TestMainVersionFlag(t *testing.T) {
	originalArgs := os.Args
	originalExit := cmd.OsExit
	defer func() {
		os.Args = originalArgs
		cmd.OsExit = originalExit
	}()

	exitCode := -1
	cmd.OsExit = func(code int) { exitCode = code }

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	os.Args = []string{"micropods", "--version"}
	main()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)

	if exitCode != -1 {
		t.Errorf("Expected no exit, got code %d", exitCode)
	}
	if !strings.Contains(buf.String(), "micropods v") {
		t.Errorf("Expected version output, got %q", buf.String())
	}
}

func TestMainExitsOnError(t *testing.T) {
	originalArgs := os.Args
	originalExit := cmd.OsExit
	originalStderr := os.Stderr
	defer func() {
		os.Args = originalArgs
		cmd.OsExit = originalExit
		os.Stderr = originalStderr
	}()

	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err == nil {
		os.Stderr = devNull
		defer devNull.Close()
	}

	exitCode := -1
	cmd.OsExit = func(code int) { exitCode = code }

	os.Args = []string{"micropods", "validate", "--env", "staging"}
	main()

	if exitCode != 1 {
		t.Errorf("Expected exit code 1, got %d", exitCode)
	}
}

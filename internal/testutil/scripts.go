package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteScript writes an executable /bin/sh script into dir and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}

// FakeQCLI is a script body that mimics the Q CLI closely enough for tests:
// --version prints a version, chat echoes stdin behind a prompt marker, and
// anything else echoes its arguments.
const FakeQCLI = `case "$1" in
--version) echo "q 1.2.3" ;;
chat)
  read -r line
  echo "mode: $2 color: $NO_COLOR"
  echo "> you said: $line"
  ;;
*) echo "args: $*" ;;
esac`

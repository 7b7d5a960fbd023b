// Package testutil holds helpers shared by the feed tests: golden files and
// a feed parser for asserting on generated documents.
package testutil

import (
	"encoding/json"
	"flag"
	"os"
	"slices"
	"testing"

	"github.com/lepinkainen/site-feed/pkg/filesystem"
)

var update = flag.Bool("update", false, "update golden files")

// CompareGolden compares the actual output with the golden file content.
// If the -update flag is provided, it updates the golden file with the actual output.
func CompareGolden(t *testing.T, goldenPath string, actual string) {
	t.Helper()

	if *update {
		writeGolden(t, goldenPath, []byte(actual))
		return
	}

	expected := string(readGolden(t, goldenPath))
	if actual != expected {
		t.Errorf("Golden file mismatch for %s\nExpected:\n%s\nActual:\n%s", goldenPath, expected, actual)
	}
}

// CompareGoldenBytes is CompareGolden for byte slices.
func CompareGoldenBytes(t *testing.T, goldenPath string, actual []byte) {
	t.Helper()
	CompareGolden(t, goldenPath, string(actual))
}

// CompareGoldenSlice compares the actual string slice with a golden file
// holding a JSON array of strings.
func CompareGoldenSlice(t *testing.T, goldenPath string, actual []string) {
	t.Helper()

	if *update {
		data, err := json.Marshal(actual)
		if err != nil {
			t.Fatalf("Failed to marshal slice to JSON: %v", err)
		}
		writeGolden(t, goldenPath, data)
		return
	}

	var expected []string
	if err := json.Unmarshal(readGolden(t, goldenPath), &expected); err != nil {
		t.Fatalf("Failed to parse JSON from golden file %s: %v", goldenPath, err)
	}
	if !slices.Equal(actual, expected) {
		t.Errorf("Golden file mismatch for %s\nExpected: %v\nActual: %v", goldenPath, expected, actual)
	}
}

func readGolden(t *testing.T, goldenPath string) []byte {
	t.Helper()

	content, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("Failed to read golden file %s: %v", goldenPath, err)
	}
	return content
}

func writeGolden(t *testing.T, goldenPath string, data []byte) {
	t.Helper()

	if err := filesystem.WriteFile(goldenPath, data); err != nil {
		t.Fatalf("Failed to update golden file %s: %v", goldenPath, err)
	}
	t.Logf("Updated golden file: %s", goldenPath)
}

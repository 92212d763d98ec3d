package encoding

import (
	"os"
	"path/filepath"
	"testing"
)

// testStructure is a test structure for encoding round trips.
type testStructure struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

// TestYAMLRoundTrip tests YAML saving and loading.
func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value.yaml")
	original := &testStructure{Name: "yaml", Value: 7}
	if err := MarshalAndSaveYAML(path, original); err != nil {
		t.Fatal("unable to save:", err)
	}
	loaded := &testStructure{}
	if err := LoadAndUnmarshalYAML(path, loaded); err != nil {
		t.Fatal("unable to load:", err)
	}
	if *loaded != *original {
		t.Error("round trip mismatch:", loaded)
	}
}

// TestJSONRoundTrip tests JSON saving and loading.
func TestJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "value.json")
	original := &testStructure{Name: "json", Value: 9}
	if err := MarshalAndSaveJSON(path, original); err != nil {
		t.Fatal("unable to save:", err)
	}
	loaded := &testStructure{}
	if err := LoadAndUnmarshalJSON(path, loaded); err != nil {
		t.Fatal("unable to load:", err)
	}
	if *loaded != *original {
		t.Error("round trip mismatch:", loaded)
	}
}

// TestLoadMissing tests that loading a missing file preserves the
// not-exist classification.
func TestLoadMissing(t *testing.T) {
	err := LoadAndUnmarshalJSON(filepath.Join(t.TempDir(), "missing.json"), &testStructure{})
	if !os.IsNotExist(err) {
		t.Error("expected not-exist error, got:", err)
	}
}

// TestBase62RoundTrip tests Base62 encoding and decoding.
func TestBase62RoundTrip(t *testing.T) {
	original := []byte{0x00, 0x01, 0xfe, 0xff, 0x42}
	encoded := EncodeBase62(original)
	decoded, err := DecodeBase62(encoded)
	if err != nil {
		t.Fatal("unable to decode:", err)
	}
	if len(decoded) != len(original) {
		t.Fatal("round trip length mismatch")
	}
	for i := range original {
		if decoded[i] != original[i] {
			t.Fatal("round trip content mismatch")
		}
	}
}

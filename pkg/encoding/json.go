package encoding

import (
	"encoding/json"
)

// LoadAndUnmarshalJSON loads data from the specified path and decodes it into
// the specified structure.
func LoadAndUnmarshalJSON(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return json.Unmarshal(data, value)
	})
}

// MarshalAndSaveJSON marshals the specified structure and saves it to the
// specified path.
func MarshalAndSaveJSON(path string, value interface{}) error {
	return MarshalAndSave(path, func() ([]byte, error) {
		return json.Marshal(value)
	})
}

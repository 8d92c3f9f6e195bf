// Package codec centralizes artifact payload encoding.
//
// Persisted quantizer artifacts are self-describing: the store layer records
// the codec name alongside the payload so it can be selected by name on load.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used when none is configured. Persisted artifacts
// record the codec name, so changing the default never breaks existing data.
var Default Codec = GoJSON{}

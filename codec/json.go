package codec

import "encoding/json"

// JSON serializes values with encoding/json. Mostly useful when containers
// must stay human-inspectable; note that JSON has no native binary type, so
// []byte field values are base64-encoded strings on disk.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

// Package codec provides pluggable value serialization for the persistent
// tier. A Codec turns one field value into the opaque payload stored inside a
// cluster's container and back.
//
// The disk tier works with heterogeneous values, so it is configured with a
// Codec[any]. Generic decoding rules of the chosen format then apply: msgpack
// and CBOR round-trip numbers, strings, byte slices and booleans exactly, while
// composite values come back in the format's generic shape (e.g. []any).
// Fields with a uniform concrete type can use a typed codec instance directly.
package codec

// Codec encodes/decodes values V to []byte for container storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

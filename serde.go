package memcache

import (
	"fmt"

	"github.com/mcproto/memcache/protocol"
)

// SerializeFunc converts a caller value into wire bytes plus the opaque
// 16-bit flags field stored alongside it. The flags are round-tripped to
// the matching DeserializeFunc untouched by the protocol.
type SerializeFunc func(key string, value any) (data []byte, flags uint16, err error)

// DeserializeFunc converts wire bytes plus the stored flags back into a
// caller value.
type DeserializeFunc func(key string, data []byte, flags uint16) (any, error)

// defaultSerialize accepts values that already are byte sequences. Anything
// else needs a caller-supplied serializer and is rejected client-side,
// before any bytes are sent.
func defaultSerialize(key string, value any) ([]byte, uint16, error) {
	switch v := value.(type) {
	case []byte:
		return v, 0, nil
	case string:
		return []byte(v), 0, nil
	default:
		return nil, 0, protocol.NewError(protocol.KindClientError,
			fmt.Sprintf("cannot encode value of type %T for key %q", value, key))
	}
}

// defaultDeserialize hands back the raw bytes.
func defaultDeserialize(key string, data []byte, flags uint16) (any, error) {
	return data, nil
}

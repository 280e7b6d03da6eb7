package protocol

import "fmt"

// ValidateKey rejects keys the server would refuse: empty keys, keys over
// MaxKeyLength bytes, and keys containing whitespace or control bytes.
// The check runs before any bytes are written to the stream.
func ValidateKey(key string) error {
	if key == "" {
		return NewError(KindClientError, "empty key")
	}
	if len(key) > MaxKeyLength {
		return NewError(KindClientError, fmt.Sprintf("key longer than %d bytes", MaxKeyLength))
	}
	for i := 0; i < len(key); i++ {
		if b := key[i]; b <= ' ' || b == 0x7f {
			return NewError(KindClientError, fmt.Sprintf("key contains invalid byte 0x%02x", b))
		}
	}
	return nil
}

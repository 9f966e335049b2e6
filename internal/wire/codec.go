package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Encode packs v (a fixed-size record, host byte order, C-ABI packed) and
// fails if the result would exceed limit — MaxCommandSize for outbound
// commands, MaxResponseSize for responses.
func Encode(v any, limit int) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.NativeEndian, v); err != nil {
		return nil, fmt.Errorf("wire: encode failed: %w", err)
	}
	if buf.Len() > limit {
		return nil, fmt.Errorf("wire: encoded record of %d bytes exceeds %d byte limit", buf.Len(), limit)
	}
	return buf.Bytes(), nil
}

// Decode unpacks data into v, which must be a pointer to a fixed-size
// record matching the bytes exactly.
func Decode(data []byte, v any) error {
	if err := binary.Read(bytes.NewReader(data), binary.NativeEndian, v); err != nil {
		return fmt.Errorf("wire: decode failed: %w", err)
	}
	return nil
}

// PeekHeader reads just the leading (class, type) tag so the dispatcher
// can pick a concrete record type before fully decoding the payload.
func PeekHeader(data []byte) (Header, error) {
	var h Header
	if err := Decode(data, &h); err != nil {
		return Header{}, err
	}
	return h, nil
}

package treebranch

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// all integers on the wire are big-endian
var byteOrder = binary.BigEndian

type integerIntern interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64
}

func WriteInteger[T integerIntern](w io.Writer, val T) error {
	return binary.Write(w, byteOrder, val)
}

func EncodeInteger[T integerIntern](v T) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, byteOrder, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// DecodeInteger decodes integer of type T from the exact number of bytes
func DecodeInteger[T integerIntern](data []byte) (T, error) {
	var ret T
	if len(data) != binary.Size(ret) {
		return ret, fmt.Errorf("DecodeInteger: expected %d bytes, got %d", binary.Size(ret), len(data))
	}
	if err := binary.Read(bytes.NewReader(data), byteOrder, &ret); err != nil {
		return ret, err
	}
	return ret, nil
}

func MustDecodeInteger[T integerIntern](data []byte) T {
	ret, err := DecodeInteger[T](data)
	if err != nil {
		panic(err)
	}
	return ret
}

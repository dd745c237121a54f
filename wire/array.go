package wire

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/lunfardo314/treebranch"
	"github.com/lunfardo314/unitrie/common"
)

// An array of byte slices is serialized as a 2-byte prefix followed by elements.
// The highest 2 bits of the prefix (interpreted as uint16) say how many bytes
// the length of each element takes (0, 1, 2 or 4), the rest is the number of
// elements. All elements use the same length size, the smallest which fits the longest one
type lenPrefix uint16

const (
	dataLenBytes0  = uint16(0x00) << 14
	dataLenBytes8  = uint16(0x01) << 14
	dataLenBytes16 = uint16(0x02) << 14
	dataLenBytes32 = uint16(0x03) << 14

	dataLenMask  = uint16(0x03) << 14
	arrayLenMask = ^dataLenMask
	// MaxArrayLen is the maximum number of elements in one list
	MaxArrayLen = int(arrayLenMask) // 16383
)

func (p lenPrefix) dataLenBytes() int {
	switch uint16(p) & dataLenMask {
	case dataLenBytes0:
		return 0
	case dataLenBytes8:
		return 1
	case dataLenBytes16:
		return 2
	}
	return 4
}

func (p lenPrefix) numElements() int {
	return int(uint16(p) & arrayLenMask)
}

func calcLenPrefix(data [][]byte) (lenPrefix, error) {
	if len(data) > MaxArrayLen {
		return 0, fmt.Errorf("too many elements: %d > %d", len(data), MaxArrayLen)
	}
	var dl uint16
	for _, d := range data {
		t := dataLenBytes0
		switch {
		case uint64(len(d)) > math.MaxUint32:
			return 0, errors.New("element can't be longer than MaxUint32")
		case len(d) > math.MaxUint16:
			t = dataLenBytes32
		case len(d) > math.MaxUint8:
			t = dataLenBytes16
		case len(d) > 0:
			t = dataLenBytes8
		}
		if dl < t {
			dl = t
		}
	}
	ret := lenPrefix(dl | uint16(len(data)))
	common.Assert(ret.numElements() == len(data), "inconsistent array prefix")
	return ret, nil
}

func encodeArray(data [][]byte, w io.Writer) error {
	prefix, err := calcLenPrefix(data)
	if err != nil {
		return err
	}
	if err = treebranch.WriteInteger(w, uint16(prefix)); err != nil {
		return err
	}
	numDataLenBytes := prefix.dataLenBytes()
	if numDataLenBytes == 0 {
		return nil
	}
	for _, d := range data {
		switch numDataLenBytes {
		case 1:
			err = treebranch.WriteInteger(w, byte(len(d)))
		case 2:
			err = treebranch.WriteInteger(w, uint16(len(d)))
		case 4:
			err = treebranch.WriteInteger(w, uint32(len(d)))
		}
		if err != nil {
			return err
		}
		if _, err = w.Write(d); err != nil {
			return err
		}
	}
	return nil
}

// decodeElement cuts the next element from buf without copying
func decodeElement(buf []byte, numDataLenBytes int) ([]byte, []byte, error) {
	if len(buf) < numDataLenBytes {
		return nil, nil, io.ErrUnexpectedEOF
	}
	var sz int
	switch numDataLenBytes {
	case 1:
		sz = int(buf[0])
	case 2:
		sz = int(treebranch.MustDecodeInteger[uint16](buf[:2]))
	case 4:
		sz = int(treebranch.MustDecodeInteger[uint32](buf[:4]))
	}
	if len(buf) < numDataLenBytes+sz {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return buf[numDataLenBytes+sz:], buf[numDataLenBytes : numDataLenBytes+sz], nil
}

func parseArray(data []byte) ([][]byte, error) {
	if len(data) < 2 {
		return nil, io.ErrUnexpectedEOF
	}
	prefix := lenPrefix(treebranch.MustDecodeInteger[uint16](data[:2]))
	data = data[2:]
	ret := make([][]byte, prefix.numElements())
	var err error
	for i := range ret {
		if data, ret[i], err = decodeElement(data, prefix.dataLenBytes()); err != nil {
			return nil, err
		}
	}
	if len(data) != 0 {
		return nil, errors.New("serialization error: not all bytes were consumed")
	}
	return ret, nil
}

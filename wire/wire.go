// Package wire encodes the list form of expression trees for transport:
// a compact binary form, JSON, and a content fingerprint
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/lunfardo314/treebranch"
	"github.com/lunfardo314/treebranch/tree"
	"golang.org/x/crypto/blake2b"
)

// kind of the element, the first byte of each encoded element
const (
	kindList = byte(iota)
	kindString
	kindInt
	kindBool
)

// Encode serializes the list form. Elements may be strings, bools, integers and nested lists.
// A list, including the head, can't have more than MaxArrayLen elements, so an array
// or a call with more than MaxArrayLen-1 children can't be encoded; EncodeJSON has no such limit
func Encode(list []any) ([]byte, error) {
	elems := make([][]byte, len(list))
	var err error
	for i, e := range list {
		if elems[i], err = encodeElement(e); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err = encodeArray(elems, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeElement(e any) ([]byte, error) {
	switch v := e.(type) {
	case []any:
		sub, err := Encode(v)
		if err != nil {
			return nil, err
		}
		return append([]byte{kindList}, sub...), nil
	case string:
		return append([]byte{kindString}, v...), nil
	case bool:
		if v {
			return []byte{kindBool, 1}, nil
		}
		return []byte{kindBool, 0}, nil
	}
	rv := reflect.ValueOf(e)
	if e != nil && rv.CanInt() {
		return append([]byte{kindInt}, treebranch.EncodeInteger(rv.Int())...), nil
	}
	return nil, fmt.Errorf("wire: unsupported element type %T", e)
}

// Decode is the inverse of Encode. Integers are restored as int64
func Decode(data []byte) ([]any, error) {
	elems, err := parseArray(data)
	if err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	ret := make([]any, len(elems))
	for i, e := range elems {
		if ret[i], err = decodeValue(e); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func decodeValue(e []byte) (any, error) {
	if len(e) == 0 {
		return nil, fmt.Errorf("wire: empty element")
	}
	payload := e[1:]
	switch e[0] {
	case kindList:
		return Decode(payload)
	case kindString:
		return string(payload), nil
	case kindInt:
		v, err := treebranch.DecodeInteger[int64](payload)
		if err != nil {
			return nil, fmt.Errorf("wire: %w", err)
		}
		return v, nil
	case kindBool:
		if len(payload) != 1 || payload[0] > 1 {
			return nil, fmt.Errorf("wire: wrong bool encoding")
		}
		return payload[0] == 1, nil
	}
	return nil, fmt.Errorf("wire: unknown element kind %d", e[0])
}

func EncodeNode(n tree.Node) ([]byte, error) {
	list, err := tree.ToList(n)
	if err != nil {
		return nil, err
	}
	return Encode(list)
}

func DecodeNode(data []byte) (tree.Node, error) {
	list, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return tree.FromList(list)
}

// EncodeJSON returns the list form as JSON
func EncodeJSON(n tree.Node) ([]byte, error) {
	list, err := tree.ToList(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(list)
}

func DecodeJSON(data []byte) (tree.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var list []any
	if err := dec.Decode(&list); err != nil {
		return nil, fmt.Errorf("wire: %w", err)
	}
	return tree.FromList(list)
}

// Fingerprint is blake2b-256 of the binary form. Trees with equal list form have
// equal fingerprints, native functions are not distinguished
func Fingerprint(n tree.Node) ([32]byte, error) {
	data, err := EncodeNode(n)
	if err != nil {
		return [32]byte{}, err
	}
	return blake2b.Sum256(data), nil
}

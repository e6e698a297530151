package base

import (
	"bytes"
	"encoding/binary"
)

// Node records are self-describing: a kind tag, the entry count, then
// length-prefixed fields. All integers are big-endian.
const (
	leafKind   byte = 0x01
	branchKind byte = 0x02

	hasSiblingFlag byte = 0x01
)

// EncodeNodeID renders an id as the fixed 8-byte big-endian key used in the
// backing store.
func EncodeNodeID(id NodeID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

// DecodeNodeID parses an 8-byte big-endian store key.
func DecodeNodeID(data []byte) (NodeID, error) {
	if len(data) != 8 {
		return 0, ErrBadNodeEncoding
	}
	return NodeID(binary.BigEndian.Uint64(data)), nil
}

// EncodeNode serializes a leaf or branch to store bytes.
func EncodeNode(n Node) ([]byte, error) {
	var buf bytes.Buffer

	switch node := n.(type) {
	case *Leaf:
		buf.WriteByte(leafKind)
		writeUint16(&buf, uint16(node.Size()))
		if node.rightSibling != NilNode {
			buf.WriteByte(hasSiblingFlag)
			writeUint64(&buf, uint64(node.rightSibling))
		} else {
			buf.WriteByte(0)
		}
		for i := 0; i < node.Size(); i++ {
			writeBytes(&buf, node.keys[i])
			writeUint64(&buf, uint64(node.valueRefs[i]))
			writeBytes(&buf, node.kvChecksums[i])
		}
		writeBytes(&buf, node.checksum)

	case *Branch:
		buf.WriteByte(branchKind)
		writeUint16(&buf, uint16(node.Size()))
		for i := 0; i < node.Size(); i++ {
			writeBytes(&buf, node.keys[i])
			writeUint64(&buf, uint64(node.childIDs[i]))
			writeBytes(&buf, node.childHashes[i])
		}
		writeBytes(&buf, node.checksum)

	default:
		return nil, ErrUnexpectedNodeKind
	}

	return buf.Bytes(), nil
}

// DecodeNode parses store bytes back into a *Leaf or *Branch.
func DecodeNode(data []byte) (Node, error) {
	r := bytes.NewReader(data)

	kind, err := r.ReadByte()
	if err != nil {
		return nil, ErrBadNodeEncoding
	}

	switch kind {
	case leafKind:
		return decodeLeaf(r)
	case branchKind:
		return decodeBranch(r)
	default:
		return nil, ErrUnexpectedNodeKind
	}
}

// DecodeLeaf parses store bytes, requiring a leaf. Following a right-sibling
// link must land on a leaf; anything else is a codec error.
func DecodeLeaf(data []byte) (*Leaf, error) {
	n, err := DecodeNode(data)
	if err != nil {
		return nil, err
	}
	leaf, ok := n.(*Leaf)
	if !ok {
		return nil, ErrUnexpectedNodeKind
	}
	return leaf, nil
}

func decodeLeaf(r *bytes.Reader) (*Leaf, error) {
	size, err := readUint16(r)
	if err != nil {
		return nil, err
	}

	flag, err := r.ReadByte()
	if err != nil {
		return nil, ErrBadNodeEncoding
	}
	sibling := NilNode
	if flag&hasSiblingFlag != 0 {
		raw, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		sibling = NodeID(raw)
	}

	keys := make([][]byte, size)
	refs := make([]ValueRef, size)
	sums := make([]Hash, size)
	for i := 0; i < int(size); i++ {
		if keys[i], err = readBytes(r); err != nil {
			return nil, err
		}
		raw, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		refs[i] = ValueRef(raw)
		kv, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		sums[i] = kv
	}

	checksum, err := readBytes(r)
	if err != nil {
		return nil, err
	}

	return MakeLeaf(keys, refs, sums, sibling, checksum), nil
}

func decodeBranch(r *bytes.Reader) (*Branch, error) {
	size, err := readUint16(r)
	if err != nil {
		return nil, err
	}

	keys := make([][]byte, size)
	ids := make([]NodeID, size)
	hashes := make([]Hash, size)
	for i := 0; i < int(size); i++ {
		if keys[i], err = readBytes(r); err != nil {
			return nil, err
		}
		raw, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		ids[i] = NodeID(raw)
		h, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		hashes[i] = h
	}

	checksum, err := readBytes(r)
	if err != nil {
		return nil, err
	}

	return MakeBranch(keys, ids, hashes, checksum), nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	writeUint16(buf, uint16(len(data)))
	buf.Write(data)
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if n, err := r.Read(b[:]); err != nil || n != 2 {
		return 0, ErrBadNodeEncoding
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if n, err := r.Read(b[:]); err != nil || n != 8 {
		return 0, ErrBadNodeEncoding
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}
	if read, err := r.Read(out); err != nil || read != int(n) {
		return nil, ErrBadNodeEncoding
	}
	return out, nil
}

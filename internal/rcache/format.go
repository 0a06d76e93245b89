package rcache

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/natelust/reups/internal/stack"
)

// magic identifies a reups binary cache file; formatVersion is bumped
// whenever the msgpack payload shape changes incompatibly. A magic or
// version mismatch means "treat the cache as absent", never a hard error
// (spec §4.3: "On magic/version mismatch the cache is treated as absent").
var magic = [4]byte{'R', 'U', 'P', 'C'}

const formatVersion uint16 = 1

// snapshot is the msgpack payload: the fingerprint the enumeration was
// computed against, plus the enumeration itself. vmihailenco/msgpack
// encodes exported struct fields by name by default, giving us the
// self-describing, forward-tolerant "length-prefixed sections" shape
// spec §4.3 asks for without a bespoke binary encoder.
type snapshot struct {
	Fingerprint string
	StackRoot   string
	Versions    []stack.VersionRecord
	Tags        []stack.TagBinding
}

// encode serializes fingerprint+enumeration into the on-disk cache format:
// a fixed 4-byte magic, a 2-byte big-endian format version, then the
// msgpack-encoded snapshot.
func encode(fingerprint string, e *stack.Enumeration) ([]byte, error) {
	payload := snapshot{
		Fingerprint: fingerprint,
		StackRoot:   e.StackRoot,
		Versions:    e.Versions,
		Tags:        e.Tags,
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(byte(formatVersion >> 8))
	buf.WriteByte(byte(formatVersion))

	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(&payload); err != nil {
		return nil, fmt.Errorf("rcache: encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// errCacheAbsent signals "no usable cache found here" without being a real
// I/O failure; callers degrade to re-enumeration on it, not propagate it.
var errCacheAbsent = fmt.Errorf("rcache: cache absent or unreadable format")

// decode parses the on-disk cache format produced by encode. Any header
// mismatch or msgpack decode error yields errCacheAbsent.
func decode(data []byte) (string, *stack.Enumeration, error) {
	if len(data) < 6 {
		return "", nil, errCacheAbsent
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return "", nil, errCacheAbsent
	}
	version := uint16(data[4])<<8 | uint16(data[5])
	if version != formatVersion {
		return "", nil, errCacheAbsent
	}

	var payload snapshot
	dec := msgpack.NewDecoder(bytes.NewReader(data[6:]))
	if err := dec.Decode(&payload); err != nil {
		return "", nil, errCacheAbsent
	}

	e := &stack.Enumeration{
		StackRoot: payload.StackRoot,
		Versions:  payload.Versions,
		Tags:      payload.Tags,
	}
	return payload.Fingerprint, e, nil
}

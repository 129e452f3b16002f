package snapshot

import (
	"bufio"
	"encoding/binary"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"io"
	"math"
	"sort"
)

// MaxRecordLen is the largest key or value a record can frame with its 2-byte length prefix
const MaxRecordLen = math.MaxUint16

const ioBufferSize = 64 * 1024

// --------------------------------------------------------------------------
// Serialization
// --------------------------------------------------------------------------

// Serialize writes m as a flat stream of (len, key, len, value) records.
// Lengths are 2-byte big endian. Entries are written in ascending key order so equal
// maps always produce equal streams.
//
// A key or value longer than MaxRecordLen cannot be framed and fails with ErrSerialization,
// as does any write error.
func Serialize(w io.Writer, m map[string][]byte) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		if len(k) > MaxRecordLen {
			return common.NewError(common.ErrCSerialization, "key of %d bytes exceeds record limit %d", len(k), MaxRecordLen)
		}
		if len(m[k]) > MaxRecordLen {
			return common.NewError(common.ErrCSerialization, "value of %d bytes for key %q exceeds record limit %d", len(m[k]), k, MaxRecordLen)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bw := bufio.NewWriterSize(w, ioBufferSize)
	var prefix [2]byte

	writeRecord := func(b []byte) error {
		binary.BigEndian.PutUint16(prefix[:], uint16(len(b)))
		if _, err := bw.Write(prefix[:]); err != nil {
			return err
		}
		_, err := bw.Write(b)
		return err
	}

	for _, k := range keys {
		if err := writeRecord([]byte(k)); err != nil {
			return common.NewError(common.ErrCSerialization, "write key: %v", err)
		}
		if err := writeRecord(m[k]); err != nil {
			return common.NewError(common.ErrCSerialization, "write value: %v", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return common.NewError(common.ErrCSerialization, "flush: %v", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Deserialization
// --------------------------------------------------------------------------

// Deserialize reads a stream written by Serialize until EOF.
// A stream that ends inside a record, or after a key without its value, fails with
// ErrDeserialization and no partial map is returned.
func Deserialize(r io.Reader) (map[string][]byte, error) {
	sc := newScanner()
	buf := make([]byte, ioBufferSize)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			sc.feed(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, common.NewError(common.ErrCDeserialization, "read: %v", err)
		}
	}

	return sc.finish()
}

type scanState uint8

const (
	awaitHigh scanState = iota // expecting the high byte of a length prefix
	awaitLow                   // expecting the low byte of a length prefix
	reading                    // copying record bytes until pos == total
)

// scanner decodes the record stream incrementally, chunk boundaries may fall anywhere
type scanner struct {
	state scanState
	high  byte
	rec   []byte
	pos   int

	// key holds the completed key while its value is being read
	key      []byte
	inValue  bool
	entries  map[string][]byte
	consumed int64
}

func newScanner() *scanner {
	return &scanner{
		state:   awaitHigh,
		entries: make(map[string][]byte),
	}
}

func (s *scanner) feed(chunk []byte) {
	for i := 0; i < len(chunk); {
		switch s.state {
		case awaitHigh:
			s.high = chunk[i]
			s.state = awaitLow
			i++

		case awaitLow:
			total := int(s.high)<<8 | int(chunk[i])
			i++
			s.rec = make([]byte, total)
			s.pos = 0
			if total == 0 {
				// nothing to read, the record is already complete
				s.complete()
				continue
			}
			s.state = reading

		case reading:
			n := copy(s.rec[s.pos:], chunk[i:])
			s.pos += n
			i += n
			if s.pos == len(s.rec) {
				s.complete()
			}
		}
	}
	s.consumed += int64(len(chunk))
}

// complete stores the finished record as key or value and awaits the next length prefix
func (s *scanner) complete() {
	if s.inValue {
		s.entries[string(s.key)] = s.rec
		s.key = nil
	} else {
		s.key = s.rec
	}
	s.inValue = !s.inValue
	s.rec = nil
	s.state = awaitHigh
}

func (s *scanner) finish() (map[string][]byte, error) {
	switch {
	case s.state == awaitLow:
		return nil, common.NewError(common.ErrCDeserialization, "truncated length prefix at offset %d", s.consumed)
	case s.state == reading:
		return nil, common.NewError(common.ErrCDeserialization, "truncated record at offset %d (%d of %d bytes)", s.consumed, s.pos, len(s.rec))
	case s.inValue:
		return nil, common.NewError(common.ErrCDeserialization, "key %q without value at offset %d", s.key, s.consumed)
	}
	return s.entries, nil
}

package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"reflect"
	"testing"
	"testing/iotest"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    map[string][]byte
	}{
		{"Empty", map[string][]byte{}},
		{"Single", map[string][]byte{"foo": []byte("bar")}},
		{"EmptyKey", map[string][]byte{"": []byte("value")}},
		{"EmptyValue", map[string][]byte{"key": {}}},
		{"EmptyKeyAndValue", map[string][]byte{"": {}}},
		{"Binary", map[string][]byte{"\x00\xff": {0x00, 0x01, 0x02}}},
		{"MaxLength", map[string][]byte{string(bytes.Repeat([]byte("k"), MaxRecordLen)): bytes.Repeat([]byte("v"), MaxRecordLen)}},
		{"Many", func() map[string][]byte {
			m := make(map[string][]byte)
			for i := 0; i < 1000; i++ {
				m[fmt.Sprintf("key-%d", i)] = []byte(fmt.Sprintf("value-%d", i))
			}
			return m
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Serialize(&buf, tt.m); err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}

			got, err := Deserialize(&buf)
			if err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.m) {
				t.Errorf("round trip mismatch: got %d entries, want %d", len(got), len(tt.m))
			}
		})
	}
}

func TestSerializeLayout(t *testing.T) {
	var buf bytes.Buffer
	m := map[string][]byte{
		"b": []byte("xyz"),
		"a": []byte("bc"),
	}
	if err := Serialize(&buf, m); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	want := []byte{
		0x00, 0x01, 'a', 0x00, 0x02, 'b', 'c',
		0x00, 0x01, 'b', 0x00, 0x03, 'x', 'y', 'z',
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("layout mismatch:\ngot  %x\nwant %x", buf.Bytes(), want)
	}
}

func TestDeserializeChunkBoundaries(t *testing.T) {
	m := map[string][]byte{
		"":      []byte("empty key"),
		"empty": {},
		"long":  bytes.Repeat([]byte("x"), 300),
	}

	var buf bytes.Buffer
	if err := Serialize(&buf, m); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	// one byte per read splits every length prefix and record
	got, err := Deserialize(iotest.OneByteReader(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("mismatch after byte-wise read: got %v", got)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"HalfKeyLength", []byte{0x00}},
		{"KeyCut", []byte{0x00, 0x03, 'a', 'b'}},
		{"KeyWithoutValue", []byte{0x00, 0x01, 'a'}},
		{"EmptyKeyWithoutValue", []byte{0x00, 0x00}},
		{"HalfValueLength", []byte{0x00, 0x01, 'a', 0x00}},
		{"ValueCut", []byte{0x00, 0x01, 'a', 0x00, 0x05, 'x'}},
		{"SecondEntryCut", []byte{0x00, 0x01, 'a', 0x00, 0x00, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Deserialize(bytes.NewReader(tt.data))
			if !errors.Is(err, common.ErrDeserialization) {
				t.Fatalf("expected ErrDeserialization, got %v", err)
			}
			if got != nil {
				t.Errorf("expected no partial map, got %v", got)
			}
		})
	}
}

func TestDeserializeZeroLengthRecords(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x00, // "" -> ""
		0x00, 0x01, 'k', 0x00, 0x00, // "k" -> ""
	}
	got, err := Deserialize(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	want := map[string][]byte{"": {}, "k": {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeserializeReadError(t *testing.T) {
	r := iotest.TimeoutReader(bytes.NewReader([]byte{0x00, 0x01, 'a', 0x00, 0x01, 'b'}))
	if _, err := Deserialize(r); !errors.Is(err, common.ErrDeserialization) {
		t.Errorf("expected ErrDeserialization, got %v", err)
	}
}

func TestSerializeErrors(t *testing.T) {
	tooLong := bytes.Repeat([]byte("x"), MaxRecordLen+1)

	if err := Serialize(&bytes.Buffer{}, map[string][]byte{"k": tooLong}); !errors.Is(err, common.ErrSerialization) {
		t.Errorf("expected ErrSerialization for long value, got %v", err)
	}
	if err := Serialize(&bytes.Buffer{}, map[string][]byte{string(tooLong): {}}); !errors.Is(err, common.ErrSerialization) {
		t.Errorf("expected ErrSerialization for long key, got %v", err)
	}

	if err := Serialize(failingWriter{}, map[string][]byte{"k": []byte("v")}); !errors.Is(err, common.ErrSerialization) {
		t.Errorf("expected ErrSerialization for write error, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func BenchmarkSerialize(b *testing.B) {
	m := make(map[string][]byte)
	for i := 0; i < 10_000; i++ {
		m[fmt.Sprintf("key-%d", i)] = bytes.Repeat([]byte("v"), 100)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := Serialize(&buf, m); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDeserialize(b *testing.B) {
	m := make(map[string][]byte)
	for i := 0; i < 10_000; i++ {
		m[fmt.Sprintf("key-%d", i)] = bytes.Repeat([]byte("v"), 100)
	}
	var buf bytes.Buffer
	if err := Serialize(&buf, m); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Deserialize(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}

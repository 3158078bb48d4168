package blockfile

import (
	"bytes"
	"testing"
)

func TestAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 0xd9b4bef9, DefaultMaxFileSize, NewMeta(KindBlock, 0), NewMeta(KindUndo, 0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	payload := []byte("a serialized block")
	fileID, pos, head, sealed, err := s.Append(KindBlock, payload, 1700000000, 1)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if sealed != nil {
		t.Fatalf("unexpected rotation on first append")
	}
	if fileID != 0 || pos != 0 {
		t.Fatalf("expected (0,0), got (%d,%d)", fileID, pos)
	}
	if head.Items != 1 {
		t.Fatalf("head.Items = %d, want 1", head.Items)
	}

	got, err := s.Read(KindBlock, fileID, pos)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("read back %q, want %q", got, payload)
	}
}

func TestRotationBoundary(t *testing.T) {
	dir := t.TempDir()
	// Small cap so a handful of ~100-byte records force rotation (S5).
	s, err := Open(dir, 0, 300, NewMeta(KindBlock, 0), NewMeta(KindUndo, 0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	payload := bytes.Repeat([]byte{0xAB}, 100)
	var sawRotation bool
	var lastID int32
	for i := 0; i < 10; i++ {
		fileID, _, _, sealed, err := s.Append(KindBlock, payload, 1700000000, int32(i))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if sealed != nil {
			sawRotation = true
			if sealed.Items == 0 {
				t.Fatalf("sealed file must report the records it held")
			}
		}
		lastID = fileID
	}
	if !sawRotation {
		t.Fatal("expected at least one rotation across 10 records in a 300-byte file")
	}
	if lastID == 0 {
		t.Fatal("expected head file id to have advanced past 0")
	}
}

func TestReadSealedFileAfterRotation(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 0, 200, NewMeta(KindBlock, 0), NewMeta(KindUndo, 0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	payload := bytes.Repeat([]byte{0x01}, 100)
	fileID0, pos0, _, _, err := s.Append(KindBlock, payload, 0, 0)
	if err != nil {
		t.Fatalf("append 0: %v", err)
	}
	// Force rotation.
	_, _, _, sealed, err := s.Append(KindBlock, payload, 0, 1)
	if err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if sealed == nil {
		t.Fatal("expected rotation")
	}

	got, err := s.Read(KindBlock, fileID0, pos0)
	if err != nil {
		t.Fatalf("read sealed file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("sealed-file read mismatch")
	}
}

func TestDeleteFileRefusesOpenHead(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 0, DefaultMaxFileSize, NewMeta(KindBlock, 0), NewMeta(KindUndo, 0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.DeleteFile(KindBlock, 0); err == nil {
		t.Fatal("expected error deleting the open head file")
	}
}

func TestRecordChecksumDetectsCorruption(t *testing.T) {
	raw := encodeRecord(0, KindBlock, []byte("payload"))
	raw[len(raw)-1] ^= 0xFF // corrupt the last payload byte
	if _, err := decodeRecord(raw); err == nil {
		t.Fatal("expected checksum mismatch to be detected")
	}
}

func TestMetaRoundTrip(t *testing.T) {
	m := Meta{Kind: KindUndo, ID: 3, Pos: 1024, Items: 7, MinTime: 10, MaxTime: 20, MinHeight: 1, MaxHeight: 9}
	enc := m.Serialize()
	if len(enc) != MetaSize {
		t.Fatalf("serialized length = %d, want %d", len(enc), MetaSize)
	}
	dec, err := DeserializeMeta(enc)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if dec != m {
		t.Fatalf("round trip mismatch: got %+v, want %+v", dec, m)
	}
}

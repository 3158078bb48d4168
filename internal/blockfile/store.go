// Package blockfile implements the chain storage engine's block file
// store (§4.1): rotating append-only files holding raw serialized blocks
// (blkNNNNN.dat) and undo records (revNNNNN.dat), addressed by
// (file-id, byte-offset).
package blockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chainkv/chainkv/internal/log"
)

// DefaultMaxFileSize is the rotation boundary: 128 MiB (§4.1).
const DefaultMaxFileSize int64 = 128 * 1024 * 1024

type openFile struct {
	f    *os.File
	meta Meta
}

// Store owns the two currently-open file descriptors (block and undo)
// and their metadata, per §3's Ownership section. Rotation, sealing, and
// reads of sealed files are all handled here; the chaindb façade owns
// deciding *when* to call Append (inside its single KV write
// transaction) and recording sealed Meta values into the file table.
type Store struct {
	dir         string
	magic       uint32
	maxFileSize int64

	block openFile
	undo  openFile
}

// fileName returns "blk00007.dat" or "rev00007.dat": the id zero-padded
// to exactly five decimal digits (§4.1).
func fileName(kind Kind, id int32) string {
	prefix := "blk"
	if kind == KindUndo {
		prefix = "rev"
	}
	return fmt.Sprintf("%s%05d.dat", prefix, id)
}

func (s *Store) path(kind Kind, id int32) string {
	return filepath.Join(s.dir, fileName(kind, id))
}

// Open opens the block file store rooted at dir, creating it if absent,
// and opens (or creates) the head files named by blockMeta/undoMeta for
// append — resuming exactly at their tracked Pos, per the KV store's
// record of how much of each file is committed.
func Open(dir string, magic uint32, maxFileSize int64, blockMeta, undoMeta Meta) (*Store, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("blockfile: mkdir %s: %w", dir, err)
	}

	s := &Store{dir: dir, magic: magic, maxFileSize: maxFileSize}

	blockFile, err := os.OpenFile(filepath.Join(dir, fileName(KindBlock, blockMeta.ID)), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockfile: open block head: %w", err)
	}
	s.block = openFile{f: blockFile, meta: blockMeta}

	undoFile, err := os.OpenFile(filepath.Join(dir, fileName(KindUndo, undoMeta.ID)), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		blockFile.Close()
		return nil, fmt.Errorf("blockfile: open undo head: %w", err)
	}
	s.undo = openFile{f: undoFile, meta: undoMeta}

	return s, nil
}

func (s *Store) headFor(kind Kind) *openFile {
	if kind == KindUndo {
		return &s.undo
	}
	return &s.block
}

// HeadMeta returns the current head file's metadata for kind, the value
// the caller (chaindb) persists under meta['B']/meta['U'] after a
// successful append.
func (s *Store) HeadMeta(kind Kind) Meta {
	return s.headFor(kind).meta
}

// Append writes payload, framed per §4.1, to the current head file of
// kind, rotating to a new file first if the write would exceed
// maxFileSize. recordTime/height are folded into the file's min/max
// tracking and drive the should_sync fsync predicate. Returns the file
// id and byte offset the record was written at, the now-current head
// meta, and the sealed predecessor's meta if rotation occurred.
func (s *Store) Append(kind Kind, payload []byte, recordTime int64, height int32) (fileID int32, pos int32, head Meta, sealed *Meta, err error) {
	encoded := encodeRecord(s.magic, kind, payload)

	of := s.headFor(kind)
	var sealedMeta *Meta
	if int64(of.meta.Pos)+int64(len(encoded)) > s.maxFileSize {
		sm, rerr := s.rotate(kind)
		if rerr != nil {
			return 0, 0, Meta{}, nil, rerr
		}
		sealedMeta = sm
		of = s.headFor(kind)
	}

	writePos := of.meta.Pos
	n, werr := of.f.WriteAt(encoded, int64(writePos))
	if werr != nil {
		return 0, 0, Meta{}, nil, fmt.Errorf("blockfile: write: %w", werr)
	}
	if n != len(encoded) {
		return 0, 0, Meta{}, nil, fmt.Errorf("blockfile: short write: wrote %d of %d bytes", n, len(encoded))
	}

	of.meta.Observe(recordTime, height, int32(len(encoded)))

	if ShouldSync(recordTime, height, time.Now()) {
		if serr := of.f.Sync(); serr != nil {
			return 0, 0, Meta{}, nil, fmt.Errorf("blockfile: fsync: %w", serr)
		}
	}

	return of.meta.ID, writePos, of.meta, sealedMeta, nil
}

// rotate seals the currently-open file of kind (fsync + close) and opens
// a fresh file with id+1, returning the sealed file's final metadata.
func (s *Store) rotate(kind Kind) (*Meta, error) {
	of := s.headFor(kind)
	if err := of.f.Sync(); err != nil {
		return nil, fmt.Errorf("blockfile: seal fsync: %w", err)
	}
	sealedMeta := of.meta
	if err := of.f.Close(); err != nil {
		return nil, fmt.Errorf("blockfile: seal close: %w", err)
	}

	newID := of.meta.ID + 1
	newPath := s.path(kind, newID)
	f, err := os.OpenFile(newPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockfile: open rotated file %s: %w", newPath, err)
	}

	*of = openFile{f: f, meta: NewMeta(kind, newID)}
	log.Storage.Debug().Str("kind", fmt.Sprint(kind)).Int32("sealed_id", sealedMeta.ID).Int32("new_id", newID).Msg("rotated block file")
	return &sealedMeta, nil
}

// Read returns the decoded payload at (kind, id, pos). If id names the
// currently-open head file its descriptor is reused; otherwise the
// sealed file is opened read-only for the duration of the call.
func (s *Store) Read(kind Kind, id int32, pos int32) ([]byte, error) {
	of := s.headFor(kind)

	var f *os.File
	if of.meta.ID == id {
		f = of.f
	} else {
		opened, err := os.Open(s.path(kind, id))
		if err != nil {
			return nil, fmt.Errorf("blockfile: open %s: %w", s.path(kind, id), err)
		}
		defer opened.Close()
		f = opened
	}

	lenBuf := make([]byte, 4)
	if _, err := f.ReadAt(lenBuf, int64(pos)+16); err != nil {
		return nil, fmt.Errorf("blockfile: read length: %w", err)
	}
	length := int(lenBuf[0]) | int(lenBuf[1])<<8 | int(lenBuf[2])<<16 | int(lenBuf[3])<<24

	raw := make([]byte, headerSize+length)
	if _, err := f.ReadAt(raw, int64(pos)); err != nil {
		return nil, fmt.Errorf("blockfile: read record: %w", err)
	}
	return decodeRecord(raw)
}

// DeleteFile removes a sealed file of the given kind and id from disk.
// It refuses to delete a currently-open head file.
func (s *Store) DeleteFile(kind Kind, id int32) error {
	of := s.headFor(kind)
	if of.meta.ID == id {
		return fmt.Errorf("blockfile: refusing to delete open head file %s", fileName(kind, id))
	}
	if err := os.Remove(s.path(kind, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blockfile: delete %s: %w", s.path(kind, id), err)
	}
	return nil
}

// Close syncs and closes both open file descriptors.
func (s *Store) Close() error {
	var firstErr error
	for _, of := range []*openFile{&s.block, &s.undo} {
		if err := of.f.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := of.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

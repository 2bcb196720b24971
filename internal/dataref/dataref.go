// Package dataref implements polymorphic byte-range handles shared by every
// demuxer and the Matroska builder: a frame's payload is rarely copied until
// the moment it is actually written out.
package dataref

import (
	"fmt"
	"io"
)

// Ref is a handle denoting a byte range that can be read on demand. A Ref
// does not own the underlying storage; file-backed refs seek-and-read their
// source at Bytes/WriteTo time.
type Ref interface {
	// Size reports the length of the referenced range in bytes.
	Size() int64
	// Bytes materialises the full range into memory.
	Bytes() ([]byte, error)
	// WriteTo copies the referenced range to w, returning the number of
	// bytes written.
	WriteTo(w io.Writer) (int64, error)
}

// Bytes is an owned, already-in-memory byte range.
type Bytes []byte

func (b Bytes) Size() int64 { return int64(len(b)) }

func (b Bytes) Bytes() ([]byte, error) { return b, nil }

func (b Bytes) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b)
	return int64(n), err
}

// View is a borrowed sub-slice of a larger buffer, sharing its backing
// store's lifetime. Distinguished from Bytes only by intent: a View is never
// the sole owner of its storage.
type View []byte

func (v View) Size() int64 { return int64(len(v)) }

func (v View) Bytes() ([]byte, error) { return v, nil }

func (v View) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(v)
	return int64(n), err
}

// File is a file-backed reference: (reader, absolute offset, length). Reads
// seek the backing ReadSeeker to Off before reading Len bytes, so a File ref
// may be read more than once and interleaved with reads of other refs over
// the same handle.
type File struct {
	R   io.ReadSeeker
	Off int64
	Len int64
}

func (f File) Size() int64 { return f.Len }

func (f File) Bytes() ([]byte, error) {
	buf := make([]byte, f.Len)
	if _, err := f.R.Seek(f.Off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("dataref: seek to %d: %w", f.Off, err)
	}
	if _, err := io.ReadFull(f.R, buf); err != nil {
		return nil, fmt.Errorf("dataref: read %d bytes at %d: %w", f.Len, f.Off, err)
	}
	return buf, nil
}

func (f File) WriteTo(w io.Writer) (int64, error) {
	if _, err := f.R.Seek(f.Off, io.SeekStart); err != nil {
		return 0, fmt.Errorf("dataref: seek to %d: %w", f.Off, err)
	}
	n, err := io.CopyN(w, f.R, f.Len)
	if err != nil {
		return n, fmt.Errorf("dataref: copy %d bytes at %d: %w", f.Len, f.Off, err)
	}
	return n, nil
}

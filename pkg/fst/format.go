package fst

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// On-disk artifact layout: a fixed little-endian header followed by the
// compiled state region. The artifact is written to a temporary path and
// renamed into place, so readers only ever observe complete files.
const (
	// MagicBytes spells "WGFS" when the header is read back as bytes.
	MagicBytes    uint32 = 0x53464757
	FormatVersion uint32 = 1
	HeaderSize           = 48
)

// Header is the fixed-size artifact header.
type Header struct {
	Magic    uint32
	Version  uint32
	MaxOrder uint32
	Scheme   uint32
	KeyCount uint64
	Root     uint64
	StateLen uint64
	Checksum uint32 // CRC-32 (IEEE) of the state region
}

// VersionMismatchError reports an artifact written with an incompatible
// format version. Loading fails closed: the engine refuses to serve rather
// than guess a layout.
type VersionMismatchError struct {
	Got  uint32
	Want uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("artifact format version %d is not supported (want %d)", e.Got, e.Want)
}

func (h Header) marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.MaxOrder)
	binary.LittleEndian.PutUint32(buf[12:16], h.Scheme)
	binary.LittleEndian.PutUint64(buf[16:24], h.KeyCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.Root)
	binary.LittleEndian.PutUint64(buf[32:40], h.StateLen)
	binary.LittleEndian.PutUint32(buf[40:44], h.Checksum)
	return buf
}

func unmarshalHeader(buf []byte) Header {
	return Header{
		Magic:    binary.LittleEndian.Uint32(buf[0:4]),
		Version:  binary.LittleEndian.Uint32(buf[4:8]),
		MaxOrder: binary.LittleEndian.Uint32(buf[8:12]),
		Scheme:   binary.LittleEndian.Uint32(buf[12:16]),
		KeyCount: binary.LittleEndian.Uint64(buf[16:24]),
		Root:     binary.LittleEndian.Uint64(buf[24:32]),
		StateLen: binary.LittleEndian.Uint64(buf[32:40]),
		Checksum: binary.LittleEndian.Uint32(buf[40:44]),
	}
}

// WriteFile persists a finished automaton. The file is staged at
// path+".tmp" and atomically promoted on success; an existing artifact at
// path is untouched by a failed write.
func WriteFile(path string, data []byte, root uint64, keyCount uint64, maxOrder int, scheme uint32) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating artifact directory: %w", err)
		}
	}

	header := Header{
		Magic:    MagicBytes,
		Version:  FormatVersion,
		MaxOrder: uint32(maxOrder),
		Scheme:   scheme,
		KeyCount: keyCount,
		Root:     root,
		StateLen: uint64(len(data)),
		Checksum: crc32.ChecksumIEEE(data),
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	cleanup := func() {
		f.Close()
		if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnf("Removing temp artifact %s: %v", tmp, rmErr)
		}
	}

	if _, err := f.Write(header.marshal()); err != nil {
		cleanup()
		return fmt.Errorf("writing artifact header: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("writing artifact states: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("syncing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			log.Warnf("Removing temp artifact %s: %v", tmp, rmErr)
		}
		return fmt.Errorf("promoting artifact: %w", err)
	}

	log.Debugf("Wrote artifact %s: %d keys, %d state bytes", path, keyCount, len(data))
	return nil
}

// Open loads and validates a serialized artifact. The returned Map is
// immutable and safe for any number of concurrent readers.
func Open(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", path, err)
	}
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("artifact %s is truncated: %d bytes", path, len(raw))
	}

	header := unmarshalHeader(raw[:HeaderSize])
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("artifact %s has invalid magic bytes 0x%08x", path, header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, &VersionMismatchError{Got: header.Version, Want: FormatVersion}
	}

	states := raw[HeaderSize:]
	if uint64(len(states)) != header.StateLen {
		return nil, fmt.Errorf("artifact %s state region is %d bytes, header says %d",
			path, len(states), header.StateLen)
	}
	if sum := crc32.ChecksumIEEE(states); sum != header.Checksum {
		return nil, fmt.Errorf("artifact %s checksum mismatch: 0x%08x != 0x%08x",
			path, sum, header.Checksum)
	}
	if header.Root >= uint64(len(states)) {
		return nil, fmt.Errorf("artifact %s root address %d out of range", path, header.Root)
	}

	codec, err := CodecForScheme(header.Scheme)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}

	return &Map{data: states, header: header, codec: codec}, nil
}

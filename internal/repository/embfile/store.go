// Package embfile persists the embedding index in a private binary file.
//
// Layout (little endian): magic "DQEI", uint16 version, model string,
// uint32 collection count, then per collection: name, vector, uint32 field
// count, then per field: name, vector. Strings are uint32 length + bytes;
// vectors are uint32 dimension + float32 values.
package embfile

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/domain/metadata"
)

const (
	magic   = "DQEI"
	version = uint16(1)

	// caps guard against allocating on a corrupt header
	maxStringLen = 1 << 16
	maxDim       = 1 << 16
	maxCount     = 1 << 20
)

var (
	// ErrCorrupt reports a file that does not parse as an embedding index.
	ErrCorrupt = errors.New("embfile: corrupt index file")
	order      = binary.LittleEndian
)

// Store reads and writes one index file.
type Store struct {
	path string
}

// New creates a Store for path. The directory is created on first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file location.
func (s *Store) Path() string { return s.path }

// Load reads the index. A missing file returns domain.ErrNotFound.
func (s *Store) Load(_ context.Context) (*metadata.EmbeddingIndex, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("embedding index %s: %w", s.path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open embedding index: %w", err)
	}
	defer f.Close()

	ix, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return ix, nil
}

// Save writes the index atomically: temp file in the same directory, then rename.
func (s *Store) Save(_ context.Context, ix *metadata.EmbeddingIndex) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	w := bufio.NewWriter(tmp)
	if err := encode(w, ix); err != nil {
		tmp.Close()
		return fmt.Errorf("encode index: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}

func encode(w io.Writer, ix *metadata.EmbeddingIndex) error {
	if ix == nil {
		ix = &metadata.EmbeddingIndex{}
	}
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, order, version); err != nil {
		return err
	}
	if err := writeString(w, ix.Model); err != nil {
		return err
	}
	if err := writeUint32(w, len(ix.Collections)); err != nil {
		return err
	}
	for _, c := range ix.Collections {
		if err := writeString(w, c.Name); err != nil {
			return err
		}
		if err := writeVector(w, c.Vector); err != nil {
			return err
		}
		if err := writeUint32(w, len(c.Fields)); err != nil {
			return err
		}
		for _, f := range c.Fields {
			if err := writeString(w, f.Name); err != nil {
				return err
			}
			if err := writeVector(w, f.Vector); err != nil {
				return err
			}
		}
	}
	return nil
}

func decode(r io.Reader) (*metadata.EmbeddingIndex, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil || string(head) != magic {
		return nil, ErrCorrupt
	}
	var v uint16
	if err := binary.Read(r, order, &v); err != nil {
		return nil, ErrCorrupt
	}
	if v != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	model, err := readString(r)
	if err != nil {
		return nil, err
	}
	n, err := readCount(r, maxCount)
	if err != nil {
		return nil, err
	}

	ix := &metadata.EmbeddingIndex{Model: model, Collections: make([]metadata.CollectionVector, 0, n)}
	for i := 0; i < n; i++ {
		var c metadata.CollectionVector
		if c.Name, err = readString(r); err != nil {
			return nil, err
		}
		if c.Vector, err = readVector(r); err != nil {
			return nil, err
		}
		nf, err := readCount(r, maxCount)
		if err != nil {
			return nil, err
		}
		c.Fields = make([]metadata.FieldVector, 0, nf)
		for j := 0; j < nf; j++ {
			var f metadata.FieldVector
			if f.Name, err = readString(r); err != nil {
				return nil, err
			}
			if f.Vector, err = readVector(r); err != nil {
				return nil, err
			}
			c.Fields = append(c.Fields, f)
		}
		ix.Collections = append(ix.Collections, c)
	}
	return ix, nil
}

func writeUint32(w io.Writer, n int) error {
	return binary.Write(w, order, uint32(n))
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	if err := writeUint32(w, len(s)); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeVector(w io.Writer, v []float32) error {
	if len(v) > maxDim {
		return fmt.Errorf("vector too long: %d", len(v))
	}
	if err := writeUint32(w, len(v)); err != nil {
		return err
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		order.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	_, err := w.Write(buf)
	return err
}

func readCount(r io.Reader, limit int) (int, error) {
	var n uint32
	if err := binary.Read(r, order, &n); err != nil {
		return 0, ErrCorrupt
	}
	if int(n) > limit {
		return 0, fmt.Errorf("%w: count %d exceeds %d", ErrCorrupt, n, limit)
	}
	return int(n), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readCount(r, maxStringLen)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", ErrCorrupt
	}
	return string(buf), nil
}

func readVector(r io.Reader) ([]float32, error) {
	n, err := readCount(r, maxDim)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 4*n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrCorrupt
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(order.Uint32(buf[i*4:]))
	}
	return v, nil
}

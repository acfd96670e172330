package store

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/xhad/bmrcheck/internal/models"
)

var (
	// ErrMissingArtifact is returned when a knowledge base file does not exist.
	ErrMissingArtifact = errors.New("knowledge base artifact missing")
	// ErrCorruptArtifact is returned when an index file does not hold what
	// its header describes.
	ErrCorruptArtifact = errors.New("knowledge base artifact corrupt")
)

const (
	indexSuffix = ".index"
	metaSuffix  = ".meta.json"

	flatMagic   = "BMRX"
	flatVersion = uint32(1)
)

type flatHeader struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Count   uint64
}

// FlatIndex is an exact nearest neighbor index over squared L2 distance. It
// is loaded fully into memory and never modified after open.
type FlatIndex struct {
	dim     int
	vectors []float32
	meta    []models.ChunkMeta
}

// IndexPath and MetaPath name the two files that make up a flat index.
func IndexPath(base string) string { return base + indexSuffix }
func MetaPath(base string) string  { return base + metaSuffix }

// NewFlat builds an in-memory index. len(vectors) must equal len(meta).
func NewFlat(vectors [][]float32, meta []models.ChunkMeta) (*FlatIndex, error) {
	if len(vectors) != len(meta) {
		return nil, fmt.Errorf("vector count %d does not match metadata count %d", len(vectors), len(meta))
	}
	f := &FlatIndex{meta: meta}
	for i, v := range vectors {
		if i == 0 {
			f.dim = len(v)
		} else if len(v) != f.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), f.dim)
		}
		f.vectors = append(f.vectors, v...)
	}
	return f, nil
}

// OpenFlat loads <base>.index and <base>.meta.json.
func OpenFlat(base string) (*FlatIndex, error) {
	for _, p := range []string{IndexPath(base), MetaPath(base)} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, p)
			}
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}

	vectors, err := readVectors(IndexPath(base))
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(MetaPath(base))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var meta []models.ChunkMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return NewFlat(vectors, meta)
}

// WriteFlat persists vectors and metadata under base.
func WriteFlat(base string, vectors [][]float32, meta []models.ChunkMeta) error {
	idx, err := NewFlat(vectors, meta)
	if err != nil {
		return err
	}

	file, err := os.Create(IndexPath(base))
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	header := flatHeader{Version: flatVersion, Dim: uint32(idx.dim), Count: uint64(len(meta))}
	copy(header.Magic[:], flatMagic)
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write index header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, idx.vectors); err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(MetaPath(base), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func readVectors(path string) ([][]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat index: %w", err)
	}

	r := bufio.NewReader(file)
	var header flatHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: failed to read index header of %s: %v", ErrCorruptArtifact, path, err)
	}
	if string(header.Magic[:]) != flatMagic {
		return nil, fmt.Errorf("%w: %s is not a flat index file", ErrCorruptArtifact, path)
	}
	if header.Version != flatVersion {
		return nil, fmt.Errorf("unsupported index version %d", header.Version)
	}
	if err := checkPayload(header, info.Size()-int64(binary.Size(header))); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptArtifact, path, err)
	}

	vectors := make([][]float32, 0, header.Count)
	for i := uint64(0); i < header.Count; i++ {
		v := make([]float32, header.Dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: index truncated at vector %d", ErrCorruptArtifact, i)
			}
			return nil, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// checkPayload verifies that payload bytes hold exactly Count vectors of Dim
// float32s, before anything is allocated from the header.
func checkPayload(h flatHeader, payload int64) error {
	if payload < 0 {
		return fmt.Errorf("file shorter than its header")
	}
	if h.Count == 0 || h.Dim == 0 {
		if h.Count != 0 || payload != 0 {
			return fmt.Errorf("header declares %d vectors of dimension %d with %d payload bytes", h.Count, h.Dim, payload)
		}
		return nil
	}

	rowBytes := uint64(h.Dim) * 4
	if h.Count > uint64(payload)/rowBytes || h.Count*rowBytes != uint64(payload) {
		return fmt.Errorf("header declares %d vectors of dimension %d, payload is %d bytes", h.Count, h.Dim, payload)
	}
	return nil
}

// Search returns the k nearest vectors in ascending distance order. When the
// index holds fewer than k vectors the tail is padded with index -1.
func (f *FlatIndex) Search(ctx context.Context, vector []float32, k int) ([]float32, []int64, error) {
	if k <= 0 {
		return nil, nil, nil
	}
	n := len(f.meta)
	if n > 0 && len(vector) != f.dim {
		return nil, nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), f.dim)
	}

	type hit struct {
		dist float32
		idx  int64
	}
	hits := make([]hit, 0, n)
	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		row := f.vectors[i*f.dim : (i+1)*f.dim]
		var d float32
		for j, x := range row {
			diff := x - vector[j]
			d += diff * diff
		}
		hits = append(hits, hit{dist: d, idx: int64(i)})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].dist < hits[b].dist })

	distances := make([]float32, 0, k)
	indices := make([]int64, 0, k)
	for i := 0; i < k && i < len(hits); i++ {
		distances = append(distances, hits[i].dist)
		indices = append(indices, hits[i].idx)
	}
	distances, indices = pad(distances, indices, k)
	return distances, indices, nil
}

func (f *FlatIndex) Lookup(idx int64) (models.ChunkMeta, bool) {
	if idx < 0 || idx >= int64(len(f.meta)) {
		return models.ChunkMeta{}, false
	}
	return f.meta[idx], true
}

func (f *FlatIndex) Len() int { return len(f.meta) }

func (f *FlatIndex) Close() {}

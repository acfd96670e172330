package processor

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/bmrcheck/internal/models"
)

// DefaultLinesPerChunk is the number of normalized lines handed to one
// pipeline run.
const DefaultLinesPerChunk = 300

// Chunk is a contiguous slice of normalized lines. Index starts at 1.
type Chunk struct {
	Index int
	Text  string
}

// ChunkLines partitions text into consecutive groups of size lines. The last
// chunk may be shorter. A final newline terminates the last line rather than
// starting an empty one, so joining the chunk texts with "\n" gives back text
// without its trailing newline.
func ChunkLines(text string, size int) []Chunk {
	if size < 1 {
		size = DefaultLinesPerChunk
	}
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	chunks := make([]Chunk, 0, (len(lines)+size-1)/size)
	for start := 0; start < len(lines); start += size {
		end := start + size
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks) + 1,
			Text:  strings.Join(lines[start:end], "\n"),
		})
	}
	return chunks
}

type ProcessorConfig struct {
	ChunkSize    int // words
	ChunkOverlap int // words
	Separators   []string
}

// Processor splits a master record into knowledge base chunks.
type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.TextSplitter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 300
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 50
	}
	if len(config.Separators) == 0 {
		config.Separators = []string{"\n\n", "\n", " ", ""}
	}

	return Processor{
		config: config,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
			textsplitter.WithSeparators(config.Separators),
			textsplitter.WithLenFunc(wordCount),
		),
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// Process splits text read from source into chunk metadata. Chunk IDs are the
// md5 of the chunk text.
func (p *Processor) Process(source, text string) (models.ProcessedDocument, error) {
	parts, err := p.splitter.SplitText(text)
	if err != nil {
		return models.ProcessedDocument{}, fmt.Errorf("failed to split %s: %w", source, err)
	}

	doc := models.ProcessedDocument{Source: filepath.Base(source)}
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		doc.Chunks = append(doc.Chunks, models.ChunkMeta{
			Source:     doc.Source,
			ChunkID:    chunkID(part),
			ChunkIndex: len(doc.Chunks),
			Text:       part,
		})
	}
	return doc, nil
}

func chunkID(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

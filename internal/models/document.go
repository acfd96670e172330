package models

// ChunkMeta is one entry of the knowledge base metadata store, parallel to
// the vector index position ChunkIndex.
type ChunkMeta struct {
	Source     string `json:"source"`
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

type ProcessedDocument struct {
	Source    string
	Chunks    []ChunkMeta
	Embedding [][]float32
}

// RetrievedChunk is a copy of a ChunkMeta with the distance reported by the
// nearest neighbor search. Lower is closer.
type RetrievedChunk struct {
	ChunkMeta
	SimilarityScore float32 `json:"similarity_score"`
}

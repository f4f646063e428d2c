package config

import "strings"

// RagConfig configures the evidence store.
type RagConfig struct {
	Backend            string
	CollectionName     string
	EmbeddingModel     string
	EmbeddingDimension int
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
}

func LoadRagConfig() *RagConfig {
	return &RagConfig{
		Backend:            strings.ToLower(getEnv("EVIDENCE_BACKEND", "memory")),
		CollectionName:     getEnv("COLLECTION_NAME", "research_evidence"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", 1536),
		ChunkSize:          getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 200),
		TopK:               getEnvAsInt("TOP_K", 5),
	}
}

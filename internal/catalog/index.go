package catalog

import (
	"context"
	"fmt"
	"strings"

	"carmatch/internal/model"
)

// BatchEmbedder embeds many texts in one call, in order.
type BatchEmbedder interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingText is the text a vehicle is indexed under: its description,
// or its name when the description is empty.
func EmbeddingText(v model.Vehicle) string {
	if d := strings.TrimSpace(v.Description); d != "" {
		return d
	}
	return v.Name
}

// EmbedTable fills the embedding column of every usable row that has none
// and returns how many rows were filled.
func EmbedTable(ctx context.Context, t *Table, e BatchEmbedder) (int, error) {
	var rows []int
	var texts []string
	for i := range t.Rows {
		v, ok := t.Vehicle(i)
		if !ok {
			continue
		}
		if emb, err := t.Embedding(i); err == nil && emb != nil {
			continue
		}
		rows = append(rows, i)
		texts = append(texts, EmbeddingText(v))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	vecs, err := e.CreateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed catalog rows: %w", err)
	}
	if len(vecs) != len(rows) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vecs), len(rows))
	}
	for j, row := range rows {
		t.SetEmbedding(row, vecs[j])
	}
	return len(rows), nil
}

// EmbedMissing embeds the vehicles whose parallel embedding is nil.
func EmbedMissing(ctx context.Context, vehicles []model.Vehicle, embeddings [][]float32, e BatchEmbedder) ([]model.EmbeddingItem, error) {
	var items []model.EmbeddingItem
	var texts []string
	for i, v := range vehicles {
		if i < len(embeddings) && len(embeddings[i]) > 0 {
			continue
		}
		items = append(items, model.EmbeddingItem{VehicleID: v.ID})
		texts = append(texts, EmbeddingText(v))
	}
	if len(items) == 0 {
		return nil, nil
	}

	vecs, err := e.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed vehicles: %w", err)
	}
	if len(vecs) != len(items) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vecs), len(items))
	}
	for j := range items {
		items[j].Embedding = vecs[j]
	}
	return items, nil
}

package sqlite

import (
	"fmt"
	"path/filepath"
	"testing"

	"resultlens/internal/domain"
)

// BenchmarkSaveOrder benchmarks replacing a large custom order
func BenchmarkSaveOrder(b *testing.B) {
	s := NewStore()
	if err := s.Open(filepath.Join(b.TempDir(), "state.db")); err != nil {
		b.Fatalf("failed to open store: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			b.Fatalf("failed to close store: %v", err)
		}
	}()

	order := domain.OrderOverride{}
	for i := range 2000 {
		order[fmt.Sprintf("pkg%d/file%d.go", i%40, i)] = i % 50
	}

	b.ResetTimer()
	for b.Loop() {
		if err := s.SaveOrder("/repo", order); err != nil {
			b.Fatalf("save failed: %v", err)
		}
	}
}

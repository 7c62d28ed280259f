package core

import (
	"context"
	"testing"

	"vialtrack/internal/infra/persistence/memory"
	"vialtrack/pkg/domain"
)

func TestSeedReferenceDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("populates empty vocabularies", func(t *testing.T) {
		store := memory.NewStore()
		if err := SeedReferenceDefaults(ctx, store); err != nil {
			t.Fatalf("seed: %v", err)
		}
		types, err := store.ListValues(ctx, domain.RefEventType)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(types) != 6 {
			t.Fatalf("expected 6 seeded event types, got %v", types)
		}
		media, err := store.ListValues(ctx, domain.RefMedium)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(media) == 0 {
			t.Fatal("expected seeded culture media")
		}
	})

	t.Run("seeding twice adds nothing", func(t *testing.T) {
		store := memory.NewStore()
		if err := SeedReferenceDefaults(ctx, store); err != nil {
			t.Fatalf("seed: %v", err)
		}
		first, _ := store.ListValues(ctx, domain.RefCellType)
		if err := SeedReferenceDefaults(ctx, store); err != nil {
			t.Fatalf("reseed: %v", err)
		}
		second, _ := store.ListValues(ctx, domain.RefCellType)
		if len(first) != len(second) {
			t.Fatalf("reseed changed vocabulary: %d -> %d", len(first), len(second))
		}
	})

	t.Run("curated vocabulary is left alone", func(t *testing.T) {
		store := memory.NewStore()
		if err := store.AddValue(ctx, domain.RefMedium, "Lab Custom Medium"); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := SeedReferenceDefaults(ctx, store); err != nil {
			t.Fatalf("seed: %v", err)
		}
		media, err := store.ListValues(ctx, domain.RefMedium)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(media) != 1 || media[0] != "Lab Custom Medium" {
			t.Fatalf("expected curated list untouched, got %v", media)
		}
	})
}

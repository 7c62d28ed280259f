package attach

import (
	"context"
	"testing"
)

func TestOpenFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Setenv("VIALTRACK_ATTACH_DRIVER", "memory")
		store, err := OpenFromEnv(ctx)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if store.Driver() != DriverMemory {
			t.Fatalf("expected memory driver, got %s", store.Driver())
		}
	})

	t.Run("fs with root", func(t *testing.T) {
		t.Setenv("VIALTRACK_ATTACH_DRIVER", "fs")
		t.Setenv("VIALTRACK_ATTACH_FS_ROOT", t.TempDir())
		store, err := OpenFromEnv(ctx)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if store.Driver() != DriverFilesystem {
			t.Fatalf("expected fs driver, got %s", store.Driver())
		}
	})

	t.Run("unknown", func(t *testing.T) {
		t.Setenv("VIALTRACK_ATTACH_DRIVER", "tape")
		if _, err := OpenFromEnv(ctx); err == nil {
			t.Fatalf("expected error for unknown driver")
		}
	})
}

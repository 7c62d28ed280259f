package core

import (
	"context"

	"vialtrack/pkg/domain"
)

// SeedReferenceDefaults loads the starter vocabulary into refs. A kind that
// already holds any value is left alone, so a curated deployment never gets
// defaults re-added after a deliberate delete.
func SeedReferenceDefaults(ctx context.Context, refs domain.ReferenceStore) error {
	for kind, values := range domain.DefaultRefValues() {
		existing, err := refs.ListValues(ctx, kind)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		for _, v := range values {
			if err := refs.AddValue(ctx, kind, v); err != nil {
				return err
			}
		}
	}
	return nil
}

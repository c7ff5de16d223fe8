package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// seedFile is a catalog snapshot in the same shape the change events carry.
type seedFile struct {
	Services []servicePayload `json:"services"`
	Staff    []staffPayload   `json:"staff"`
}

// Load reads a JSON seed from r and upserts every row. Unlike event handling, an
// invalid row fails the whole load so a bad file is noticed.
func Load(ctx context.Context, r io.Reader, w Writer) (services, staff int, err error) {
	var seed seedFile
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return 0, 0, fmt.Errorf("decode catalog seed: %w", err)
	}
	for i, p := range seed.Services {
		svc, ok := p.service()
		if !ok {
			return services, staff, fmt.Errorf("service %d (%q) is invalid", i, p.ID)
		}
		if err := w.UpsertService(ctx, svc); err != nil {
			return services, staff, fmt.Errorf("upsert service %s: %w", svc.ID, err)
		}
		services++
	}
	for i, p := range seed.Staff {
		st, ok := p.staff()
		if !ok {
			return services, staff, fmt.Errorf("staff %d (%q) is invalid", i, p.ID)
		}
		if err := w.UpsertStaff(ctx, st); err != nil {
			return services, staff, fmt.Errorf("upsert staff %s: %w", st.ID, err)
		}
		staff++
	}
	return services, staff, nil
}

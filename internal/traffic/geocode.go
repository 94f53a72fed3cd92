package traffic

import (
	"context"
	"fmt"
)

// GeocodeMany resolves each input through the provider, strictly one at a
// time. Geocoding is deliberately sequential so the adapter's pacer needs no
// cross-call coordination. The first failure aborts the whole operation,
// annotated with the address that failed.
//
// The returned map is keyed by the input address text. Duplicate address
// texts are resolved once.
func GeocodeMany(ctx context.Context, p Provider, inputs []AddressInput) (map[string]*GeocodedAddress, error) {
	out := make(map[string]*GeocodedAddress, len(inputs))

	for _, in := range inputs {
		if _, ok := out[in.Address]; ok {
			continue
		}

		resolved, err := p.Geocode(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("geocode %q: %w", in.Address, err)
		}
		out[in.Address] = resolved
	}

	return out, nil
}

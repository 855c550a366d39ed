package geocoder

import (
	"context"

	"github.com/gilbertyin/Jurni/internal/domain"
)

// Geocoder resolves a venue into coordinates. A miss is not an error: when
// any input is the unknown sentinel, or the service finds no match, the
// result is a null coordinate pair with a nil error.
type Geocoder interface {
	Geocode(ctx context.Context, venueName, cityName, countryName string) (domain.Coordinates, error)
}

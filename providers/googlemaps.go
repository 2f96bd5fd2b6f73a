package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

const providerMaps = "googlemaps"

// ErrZeroResults is returned when geocoding finds nothing for the address.
var ErrZeroResults = errors.New("no geocoding results")

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) String() string {
	return fmt.Sprintf("%g,%g", p.Lat, p.Lng)
}

type GeocodeResult struct {
	Location         LatLng `json:"location"`
	City             string `json:"city"`
	State            string `json:"state"`
	FormattedAddress string `json:"formatted_address"`
}

// DistanceElement is one origin-destination cell of a distance matrix.
type DistanceElement struct {
	Status         string
	DistanceMeters int
	DistanceText   string
	DurationText   string
}

// Maps geocodes addresses and measures driving distances.
type Maps interface {
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)
	DistanceMatrix(ctx context.Context, origin LatLng, destinations []string) ([]DistanceElement, error)
}

// GoogleMapsClient serves Maps through the Google Maps web services client.
type GoogleMapsClient struct {
	client *maps.Client
}

// NewGoogleMapsClient builds a client against baseURL (the public API host in
// production, a test server otherwise). The library wraps the transport of
// the client it is given, so httpClient is copied first.
func NewGoogleMapsClient(baseURL, apiKey string, httpClient *http.Client) (*GoogleMapsClient, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	hc := *httpClient
	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&hc),
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return &GoogleMapsClient{client: client}, nil
}

func (c *GoogleMapsClient) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	results, err := c.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  "in",
	})
	if err != nil {
		return nil, classifyMapsError(err)
	}
	if len(results) == 0 {
		return nil, ErrZeroResults
	}

	first := results[0]
	out := &GeocodeResult{
		Location:         LatLng{Lat: first.Geometry.Location.Lat, Lng: first.Geometry.Location.Lng},
		FormattedAddress: first.FormattedAddress,
	}
	for _, comp := range first.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality":
				out.City = comp.LongName
			case "administrative_area_level_1":
				out.State = comp.LongName
			case "administrative_area_level_2", "administrative_area_level_3":
				if out.City == "" {
					out.City = comp.LongName
				}
			}
		}
	}
	return out, nil
}

func (c *GoogleMapsClient) DistanceMatrix(ctx context.Context, origin LatLng, destinations []string) ([]DistanceElement, error) {
	if len(destinations) == 0 {
		return nil, nil
	}

	resp, err := c.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin.String()},
		Destinations: destinations,
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	})
	if err != nil {
		return nil, classifyMapsError(err)
	}
	if len(resp.Rows) == 0 {
		return nil, &GatewayError{Provider: providerMaps, Kind: KindDecode, Err: errors.New("distance matrix has no rows")}
	}

	elements := resp.Rows[0].Elements
	out := make([]DistanceElement, len(destinations))
	for i := range out {
		if i >= len(elements) || elements[i] == nil {
			out[i] = DistanceElement{Status: "MISSING"}
			continue
		}
		e := elements[i]
		out[i] = DistanceElement{
			Status:         e.Status,
			DistanceMeters: e.Distance.Meters,
			DistanceText:   e.Distance.HumanReadable,
		}
		if e.Status == "OK" {
			out[i].DurationText = durationText(e.Duration)
		}
	}
	return out, nil
}

// DisabledMaps fails every call. It stands in when no API key is configured.
type DisabledMaps struct{}

var errMapsDisabled = &GatewayError{Provider: providerMaps, Kind: KindAuth, Err: errors.New("no API key configured")}

func (DisabledMaps) Geocode(context.Context, string) (*GeocodeResult, error) {
	return nil, errMapsDisabled
}

func (DisabledMaps) DistanceMatrix(context.Context, LatLng, []string) ([]DistanceElement, error) {
	return nil, errMapsDisabled
}

// classifyMapsError tags a maps library error with a GatewayError kind. The
// library reports non-OK API statuses as "maps: STATUS - message".
func classifyMapsError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &GatewayError{Provider: providerMaps, Kind: KindDecode, Err: err}
	case strings.HasPrefix(err.Error(), "maps: "):
		status := strings.TrimPrefix(err.Error(), "maps: ")
		if i := strings.Index(status, " - "); i >= 0 {
			status = status[:i]
		}
		return &GatewayError{Provider: providerMaps, Kind: KindStatus, Body: status, Err: err}
	default:
		return &GatewayError{Provider: providerMaps, Kind: KindTransport, Err: err}
	}
}

// durationText renders a drive time the way the Maps API text field does,
// e.g. "12 mins" or "1 hour 5 mins".
func durationText(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	hours, mins := mins/60, mins%60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if mins > 0 {
		parts = append(parts, plural(mins, "min"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

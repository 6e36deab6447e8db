package address

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/model"
)

const geocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Geocoder validates addresses against the Google Maps Geocoding API.
type Geocoder struct {
	client *resty.Client
	apiKey string
	log    zerolog.Logger
}

// NewGeocoder constructs a Geocoder with a bounded request timeout.
func NewGeocoder(apiKey string, log zerolog.Logger) *Geocoder {
	return &Geocoder{
		client: resty.New().SetTimeout(10 * time.Second),
		apiKey: apiKey,
		log:    log,
	}
}

// WithBaseURL overrides the geocoding endpoint; used by tests.
func (g *Geocoder) WithBaseURL(u string) *Geocoder {
	g.client.SetBaseURL(u)
	return g
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

func (g *Geocoder) Validate(ctx context.Context, a model.Address) Result {
	if !a.Complete() {
		return Result{Status: model.AddressUnvalidated}
	}

	parts := []string{a.Street, a.City}
	for _, s := range []string{a.State, a.PostalCode, a.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}

	var out geocodeResponse
	url := geocodeURL
	if g.client.BaseURL != "" {
		url = "/maps/api/geocode/json"
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("address", strings.Join(parts, ", ")).
		SetQueryParam("key", g.apiKey).
		SetResult(&out).
		Get(url)
	if err != nil {
		g.log.Warn().Err(err).Msg("address validation request failed")
		return Result{Status: model.AddressUnvalidated}
	}
	if resp.StatusCode() != 200 {
		g.log.Warn().Int("status", resp.StatusCode()).Msg("address validation rejected")
		return Result{Status: model.AddressFailed}
	}
	if out.Status != "OK" || len(out.Results) == 0 {
		return Result{Status: model.AddressFailed}
	}

	best := out.Results[0]
	norm := a
	norm.Formatted = best.FormattedAddress
	var streetNumber, route string
	for _, c := range best.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "street_number":
				streetNumber = c.LongName
			case "route":
				route = c.LongName
			case "locality", "sublocality":
				norm.City = c.LongName
			case "administrative_area_level_1":
				norm.State = c.ShortName
			case "postal_code":
				norm.PostalCode = c.LongName
			case "country":
				norm.Country = c.ShortName
			}
		}
	}
	if route != "" {
		norm.Street = strings.TrimSpace(streetNumber + " " + route)
	}
	return Result{Status: model.AddressValidated, Normalized: &norm}
}

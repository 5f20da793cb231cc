package maps

import (
	"context"
	"strconv"
	"strings"
	"time"

	"hvac_dispatch_backend/platform/apperr"
	"hvac_dispatch_backend/platform/logger"

	"github.com/go-resty/resty/v2"
)

const (
	lookupTimeout = 5 * time.Second
	maxResults    = 5
	userAgent     = "hvac-dispatch/1.0"
)

// Config provides the geocoder endpoint and the country results are
// restricted to.
type Config interface {
	GetGeocoderURL() string
	GetGeocoderCountry() string
}

// Service looks up addresses through a Nominatim-compatible geocoder.
type Service struct {
	client  *resty.Client
	country string
	log     *logger.Logger
}

func NewService(cfg Config, log *logger.Logger) *Service {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.GetGeocoderURL(), "/")).
		SetTimeout(lookupTimeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &Service{
		client:  client,
		country: strings.ToLower(cfg.GetGeocoderCountry()),
		log:     log,
	}
}

// SearchAddress returns up to five street-level suggestions for query.
func (s *Service) SearchAddress(ctx context.Context, query string) ([]AddressSuggestion, error) {
	const op = "maps.SearchAddress"

	query = strings.TrimSpace(query)
	if len(query) < 3 {
		return nil, apperr.Validation("query must be at least 3 characters").WithOp(op)
	}

	params := map[string]string{
		"q":              query,
		"format":         "json",
		"addressdetails": "1",
		"limit":          strconv.Itoa(maxResults),
	}
	if s.country != "" {
		params["countrycodes"] = s.country
	}

	var rawResults []nominatimResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&rawResults).
		Get("/search")
	if err != nil {
		s.log.Error("geocoder request failed", "error", err)
		return nil, apperr.Dependency("address lookup service unavailable", err).WithOp(op)
	}
	if !resp.IsSuccess() {
		s.log.Error("geocoder upstream error", "status", resp.StatusCode())
		return nil, apperr.Dependency("address lookup service unavailable", nil).WithOp(op)
	}

	suggestions := make([]AddressSuggestion, 0, len(rawResults))
	for _, raw := range rawResults {
		suggestion, ok := buildSuggestion(raw)
		if !ok {
			continue
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, nil
}

func buildSuggestion(raw nominatimResponse) (AddressSuggestion, bool) {
	if raw.Address.Road == "" {
		return AddressSuggestion{}, false
	}

	city := pickCity(raw.Address)
	if city == "" {
		return AddressSuggestion{}, false
	}

	lat, latErr := strconv.ParseFloat(raw.Lat, 64)
	lon, lonErr := strconv.ParseFloat(raw.Lon, 64)
	if latErr != nil || lonErr != nil {
		return AddressSuggestion{}, false
	}

	suggestion := AddressSuggestion{
		Street:       raw.Address.Road,
		HouseNumber:  raw.Address.HouseNumber,
		Neighborhood: firstNonEmpty(raw.Address.Suburb, raw.Address.Neighbourhood),
		ZipCode:      raw.Address.Postcode,
		City:         city,
		State:        raw.Address.State,
		Latitude:     lat,
		Longitude:    lon,
	}
	suggestion.Label = buildLabel(suggestion)

	return suggestion, true
}

func pickCity(address nominatimAddress) string {
	return firstNonEmpty(address.City, address.Town, address.Village, address.Municipality)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// buildLabel renders the address the way it is written in Mexico:
// "Calle 12, Col. Centro, 64000 Monterrey, Nuevo León".
func buildLabel(s AddressSuggestion) string {
	street := s.Street
	if s.HouseNumber != "" {
		street += " " + s.HouseNumber
	}
	parts := []string{street}
	if s.Neighborhood != "" {
		parts = append(parts, "Col. "+s.Neighborhood)
	}
	city := s.City
	if s.ZipCode != "" {
		city = s.ZipCode + " " + city
	}
	parts = append(parts, city)
	if s.State != "" {
		parts = append(parts, s.State)
	}
	return strings.Join(parts, ", ")
}

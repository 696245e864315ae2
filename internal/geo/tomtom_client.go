package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shinyyama/quickfix-backend/internal/model"
)

const defaultTomTomBaseURL = "https://api.tomtom.com"

var ErrMapsNotConfigured = errors.New("TOMTOM_API_KEY is not set")

// TomTomClient wraps the reverse-geocoding and routing endpoints.
type TomTomClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewTomTomClient(apiKey string, httpClient *http.Client) *TomTomClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TomTomClient{apiKey: apiKey, baseURL: defaultTomTomBaseURL, httpClient: httpClient}
}

// WithBaseURL points the client at another host (tests, proxies).
func (c *TomTomClient) WithBaseURL(base string) *TomTomClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

type reverseGeocodeResponse struct {
	Addresses []struct {
		Address struct {
			StreetNumber            string `json:"streetNumber"`
			StreetName              string `json:"streetName"`
			MunicipalitySubdivision string `json:"municipalitySubdivision"`
			Municipality            string `json:"municipality"`
			CountrySubdivision      string `json:"countrySubdivision"`
			PostalCode              string `json:"postalCode"`
			FreeformAddress         string `json:"freeformAddress"`
		} `json:"address"`
	} `json:"addresses"`
}

// ReverseGeocode returns a human-readable address for the coordinate, or ""
// when the provider has nothing for it.
func (c *TomTomClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrMapsNotConfigured
	}
	endpoint := fmt.Sprintf("%s/search/2/reverseGeocode/%f,%f.json?key=%s", c.baseURL, lat, lon, url.QueryEscape(c.apiKey))
	var out reverseGeocodeResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return "", err
	}
	if len(out.Addresses) == 0 {
		return "", nil
	}
	a := out.Addresses[0].Address
	parts := make([]string, 0, 6)
	for _, p := range []string{a.StreetNumber, a.StreetName, a.MunicipalitySubdivision, a.Municipality, a.CountrySubdivision, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return strings.TrimSpace(a.FreeformAddress), nil
	}
	return strings.Join(parts, ", "), nil
}

type Route struct {
	Points            []model.GeoPoint `json:"points"`
	LengthMeters      int              `json:"lengthInMeters"`
	TravelTimeSeconds int              `json:"travelTimeInSeconds"`
}

type calculateRouteResponse struct {
	Routes []struct {
		Summary struct {
			LengthInMeters      int `json:"lengthInMeters"`
			TravelTimeInSeconds int `json:"travelTimeInSeconds"`
		} `json:"summary"`
		Legs []struct {
			Points []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"points"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route returns the driving route polyline between two points.
func (c *TomTomClient) Route(ctx context.Context, from, to model.GeoPoint) (*Route, error) {
	if c.apiKey == "" {
		return nil, ErrMapsNotConfigured
	}
	endpoint := fmt.Sprintf("%s/routing/1/calculateRoute/%f,%f:%f,%f/json?key=%s",
		c.baseURL, from.Latitude, from.Longitude, to.Latitude, to.Longitude, url.QueryEscape(c.apiKey))
	var out calculateRouteResponse
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	if len(out.Routes) == 0 {
		return nil, errors.New("no route found")
	}
	r := out.Routes[0]
	route := &Route{LengthMeters: r.Summary.LengthInMeters, TravelTimeSeconds: r.Summary.TravelTimeInSeconds}
	for _, leg := range r.Legs {
		for _, p := range leg.Points {
			route.Points = append(route.Points, model.GeoPoint{Latitude: p.Latitude, Longitude: p.Longitude})
		}
	}
	return route, nil
}

func (c *TomTomClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tomtom request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("tomtom status %d: %s", resp.StatusCode, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tomtom decode: %w", err)
	}
	return nil
}

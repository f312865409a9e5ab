// Package tzlookup resolves the IANA timezone of a coordinate through the
// public timezonefinder HTTP API. Lookup failures fall back to the configured
// default zone: an office with a slightly wrong timezone beats a failed
// creation flow.
package tzlookup

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kirsanium/openpvz/internal/geo"
)

const defaultEndpoint = "http://timezonefinder.michelfe.it"

type Resolver struct {
	Client  *http.Client
	Default string

	baseURL string
}

func NewResolver(defaultZone string) *Resolver {
	return &Resolver{
		Client:  &http.Client{Timeout: 5 * time.Second},
		Default: defaultZone,
		baseURL: defaultEndpoint,
	}
}

type apiResponse struct {
	StatusCode int    `json:"status_code"`
	TzName     string `json:"tz_name"`
}

// Resolve returns the IANA zone name for loc, or the default on any failure.
func (r *Resolver) Resolve(loc geo.Location) string {
	resp, err := r.Client.Get(fmt.Sprintf("%s/api/0_%f_%f", r.baseURL, loc.Longitude, loc.Latitude))
	if err != nil {
		zap.L().Warn("timezone lookup failed", zap.Error(err))
		return r.Default
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		zap.L().Warn("timezone lookup returned malformed response", zap.Error(err))
		return r.Default
	}
	if parsed.StatusCode != http.StatusOK || parsed.TzName == "" {
		zap.L().Warn("timezone lookup found no zone",
			zap.Float64("latitude", loc.Latitude),
			zap.Float64("longitude", loc.Longitude))
		return r.Default
	}
	if _, err := time.LoadLocation(parsed.TzName); err != nil {
		zap.L().Warn("timezone lookup returned unknown zone", zap.String("tz", parsed.TzName))
		return r.Default
	}
	return parsed.TzName
}

package learning

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

var academyQueries = []string{"영어학원", "영어 유치원", "english academy", "english school kids"}

// Academy is one nearby English school.
type Academy struct {
	Name      string  `json:"name"`
	Phone     *string `json:"phone"`
	Address   string  `json:"address"`
	MapURL    *string `json:"mapUrl"`
	DistanceM *int    `json:"distanceM"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapURL(lat, lon *float64) *string {
	if lat == nil || lon == nil {
		return nil
	}
	return strPtr(fmt.Sprintf("https://www.bing.com/maps?cp=%v~%v", *lat, *lon))
}

// FindLocalAcademies geocodes the address and searches nearby English schools
// with Korean and English queries. Without a Maps key it returns a sample.
func (s *Service) FindLocalAcademies(ctx context.Context, args map[string]any) (any, error) {
	address, err := requireString(args, "address")
	if err != nil {
		return nil, err
	}
	radius := intArg(args, "radiusMeters", 3000)
	if radius <= 0 {
		return nil, fmt.Errorf("radiusMeters must be > 0")
	}
	topK := clamp(intArg(args, "topK", 10), 1, 25)

	if s.cfg.Maps.APIKey == "" {
		dist := 850
		return []Academy{{
			Name:      "해피 잉글리시",
			Phone:     strPtr("010-1234-5678"),
			Address:   address,
			DistanceM: &dist,
		}}, nil
	}

	lat, lon, ok := s.geocode(ctx, address)
	if !ok {
		return []Academy{}, nil
	}

	seen := map[string]bool{}
	items := []Academy{}
	for _, q := range academyQueries {
		for _, r := range s.searchPOI(ctx, lat, lon, q, radius, topK) {
			uid := r.POI.ID
			if uid == "" {
				uid = r.Address.FreeformAddress
			}
			if uid == "" {
				uid = r.POI.Name
			}
			if uid == "" || seen[uid] {
				continue
			}
			seen[uid] = true

			a := Academy{
				Name:    r.POI.Name,
				Phone:   strPtr(r.POI.Phone),
				Address: r.Address.FreeformAddress,
				MapURL:  mapURL(r.Position.Lat, r.Position.Lon),
			}
			if a.Name == "" {
				a.Name = "학원"
			}
			if a.Phone == nil {
				a.Phone = strPtr(r.Address.LocalName)
			}
			if a.Address == "" {
				a.Address = address
			}
			if r.Dist != nil {
				d := int(*r.Dist)
				a.DistanceM = &d
			}
			items = append(items, a)
		}
	}
	if len(items) > topK {
		items = items[:topK]
	}
	return items, nil
}

type mapsPosition struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type poiResult struct {
	POI struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"poi"`
	Address struct {
		FreeformAddress string `json:"freeformAddress"`
		LocalName       string `json:"localName"`
	} `json:"address"`
	Position mapsPosition `json:"position"`
	Dist     *float64     `json:"dist"`
}

func (s *Service) geocode(ctx context.Context, address string) (float64, float64, bool) {
	params := url.Values{
		"api-version":      {"1.0"},
		"query":            {address},
		"subscription-key": {s.cfg.Maps.APIKey},
	}
	var data struct {
		Results []struct {
			Position mapsPosition `json:"position"`
		} `json:"results"`
	}
	if err := s.getJSON(ctx, s.endpoints.Maps+"/search/address/json?"+params.Encode(), nil, &data); err != nil {
		slog.Warn("Geocode failed", "err", err)
		return 0, 0, false
	}
	if len(data.Results) == 0 {
		return 0, 0, false
	}
	pos := data.Results[0].Position
	if pos.Lat == nil || pos.Lon == nil {
		return 0, 0, false
	}
	return *pos.Lat, *pos.Lon, true
}

func (s *Service) searchPOI(ctx context.Context, lat, lon float64, q string, radius, limit int) []poiResult {
	params := url.Values{
		"api-version":      {"1.0"},
		"subscription-key": {s.cfg.Maps.APIKey},
		"query":            {q},
		"lat":              {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":              {strconv.FormatFloat(lon, 'f', -1, 64)},
		"radius":           {strconv.Itoa(radius)},
		"limit":            {strconv.Itoa(limit)},
	}
	var data struct {
		Results []poiResult `json:"results"`
	}
	if err := s.getJSON(ctx, s.endpoints.Maps+"/search/fuzzy/json?"+params.Encode(), nil, &data); err != nil {
		slog.Debug("POI search failed", "q", q, "err", err)
		return nil
	}
	return data.Results
}

// SearchAcademiesAI queries the academy search index. Missing configuration
// or a failed request yields an empty list.
func (s *Service) SearchAcademiesAI(ctx context.Context, args map[string]any) (any, error) {
	region, err := requireString(args, "region")
	if err != nil {
		return nil, err
	}
	query := stringArg(args, "query")
	if query == "" {
		query = "english academy kids"
	}
	topK := clamp(intArg(args, "topK", 5), 1, 25)

	sc := s.cfg.Search
	index := sc.Index
	if index == "" {
		index = "kidsenglish"
	}
	if sc.Endpoint == "" || sc.APIKey == "" {
		return []Academy{}, nil
	}
	version := sc.APIVersion
	if version == "" {
		version = "2023-11-01"
	}
	params := url.Values{
		"api-version": {version},
		"search":      {query + " " + region},
		"$top":        {strconv.Itoa(topK)},
		"queryType":   {"simple"},
	}
	var data struct {
		Value []map[string]any `json:"value"`
	}
	u := fmt.Sprintf("%s/indexes/%s/docs?%s", sc.Endpoint, url.PathEscape(index), params.Encode())
	if err := s.getJSON(ctx, u, http.Header{"Api-Key": {sc.APIKey}}, &data); err != nil {
		slog.Warn("Academy search failed", "err", err)
		return []Academy{}, nil
	}

	items := make([]Academy, 0, len(data.Value))
	for _, d := range data.Value {
		if len(items) == topK {
			break
		}
		a := Academy{
			Name:    firstString(d, "name", "title", "academy"),
			Address: firstString(d, "address", "addr"),
			Phone:   strPtr(firstString(d, "phone", "tel")),
			MapURL:  mapURL(firstFloat(d, "lat", "latitude"), firstFloat(d, "lon", "longitude")),
		}
		if a.Name == "" {
			a.Name = "Academy"
		}
		if a.Address == "" {
			a.Address = region
		}
		items = append(items, a)
	}
	return items, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if f, ok := m[k].(float64); ok {
			return &f
		}
	}
	return nil
}

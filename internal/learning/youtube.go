package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const maxCandidateVideos = 15

// Video is one recommended video.
type Video struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Channel     string   `json:"channel"`
	URL         string   `json:"url"`
	DurationSec int      `json:"durationSec"`
	HasCaptions bool     `json:"hasCaptions"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Tags        []string `json:"tags"`
}

// SearchYouTubeVideos finds captioned, age-appropriate videos. Without an API
// key, or when the API fails, it returns a single age-based sample.
func (s *Service) SearchYouTubeVideos(ctx context.Context, args map[string]any) (any, error) {
	age := intArg(args, "age", -1)
	if age < 0 || age > 15 {
		return nil, fmt.Errorf("age must be between 0 and 15")
	}
	cefr, err := requireString(args, "cefr")
	if err != nil {
		return nil, err
	}
	chars := stringsArg(args, "characters")
	limit := clamp(intArg(args, "max", 10), 1, 50)

	if s.cfg.YouTube.APIKey != "" {
		videos, err := s.youtubeSearch(ctx, age, cefr, chars, limit)
		if err == nil {
			return videos, nil
		}
		slog.Warn("YouTube search failed, using sample", "err", err)
	}
	return sampleVideos(age, cefr, chars), nil
}

func (s *Service) youtubeSearch(ctx context.Context, age int, cefr string, chars []string, limit int) ([]Video, error) {
	norm := NormCharacters(chars)
	lead := "kids"
	if len(norm) > 0 {
		lead = norm[0]
	}
	_, bucket := s.rules.Pick(age)

	var queries []string
	if len(bucket.Keywords) > 0 {
		queries = append(queries, strings.Join([]string{lead, bucket.Keywords[0], "english"}, " "))
	}
	queries = append(queries,
		lead+" kids video learn english",
		"kids english "+LevelKeywords(cefr)[0],
	)
	channels := bucket.Channels
	if len(channels) == 0 {
		channels = s.cfg.YouTube.PreferredChannels
	}
	if len(channels) > 0 {
		queries = append(queries, channels[0]+" kids english")
	}

	var ids []string
	for _, q := range queries {
		found, err := s.youtubeSearchIDs(ctx, q)
		if err != nil {
			slog.Debug("YouTube query failed", "q", q, "err", err)
			continue
		}
		ids = append(ids, found...)
	}
	ids = dedupe(ids)
	if len(ids) > maxCandidateVideos {
		ids = ids[:maxCandidateVideos]
	}
	if len(ids) == 0 {
		return []Video{}, nil
	}

	raw, err := s.youtubeVideos(ctx, ids, dedupe(append([]string{cefr}, chars...)))
	if err != nil {
		return nil, err
	}

	filtered := raw[:0]
	for _, v := range raw {
		if s.rules.DurationOK(age, v.DurationSec) {
			filtered = append(filtered, v)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return s.rules.Score(filtered[i], norm, cefr, age) > s.rules.Score(filtered[j], norm, cefr, age)
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (s *Service) youtubeSearchIDs(ctx context.Context, q string) ([]string, error) {
	params := url.Values{
		"key":             {s.cfg.YouTube.APIKey},
		"q":               {q},
		"part":            {"snippet"},
		"maxResults":      {"10"},
		"type":            {"video"},
		"safeSearch":      {"strict"},
		"videoCaption":    {"closedCaption"},
		"videoEmbeddable": {"true"},
		"relevanceLanguage": {"en"},
	}
	var data struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := s.getJSON(ctx, s.endpoints.YouTube+"/search?"+params.Encode(), nil, &data); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(data.Items))
	for _, it := range data.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	return ids, nil
}

func (s *Service) youtubeVideos(ctx context.Context, ids, tags []string) ([]Video, error) {
	params := url.Values{
		"key":  {s.cfg.YouTube.APIKey},
		"id":   {strings.Join(ids, ",")},
		"part": {"snippet,contentDetails,status"},
	}
	type thumb struct {
		URL string `json:"url"`
	}
	var data struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title        string           `json:"title"`
				ChannelTitle string           `json:"channelTitle"`
				Thumbnails   map[string]thumb `json:"thumbnails"`
			} `json:"snippet"`
			ContentDetails struct {
				Duration string `json:"duration"`
				Caption  string `json:"caption"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	if err := s.getJSON(ctx, s.endpoints.YouTube+"/videos?"+params.Encode(), nil, &data); err != nil {
		return nil, fmt.Errorf("video details: %w", err)
	}

	videos := make([]Video, 0, len(data.Items))
	for _, it := range data.Items {
		if it.ID == "" {
			continue
		}
		th := it.Snippet.Thumbnails["high"]
		if th.URL == "" {
			th = it.Snippet.Thumbnails["default"]
		}
		videos = append(videos, Video{
			ID:          it.ID,
			Title:       it.Snippet.Title,
			Channel:     it.Snippet.ChannelTitle,
			URL:         "https://www.youtube.com/watch?v=" + it.ID,
			DurationSec: ParseISODuration(it.ContentDetails.Duration),
			HasCaptions: it.ContentDetails.Caption == "true",
			Thumbnail:   th.URL,
			Tags:        tags,
		})
	}
	return videos, nil
}

var reISODuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseISODuration converts a YouTube duration such as PT4M5S to seconds.
// Anything it cannot read is 0.
func ParseISODuration(d string) int {
	m := reISODuration.FindStringSubmatch(d)
	if m == nil {
		return 0
	}
	total := 0
	for i, mult := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		total += n * mult
	}
	return total
}

func sampleVideos(age int, cefr string, chars []string) []Video {
	char := "Pikachu"
	if len(chars) > 0 {
		char = chars[0]
	}
	var title, id string
	var dur int
	switch {
	case age <= 5:
		title, id, dur = char+" ABC phonics song", "JY8cXbeAY3Y", 180
	case age <= 8:
		title, id, dur = char+" simple story for A1", "J---aiyznGQ", 360
	default:
		title, id, dur = char+" science for kids (A2)", "3JZ_D3ELwOQ", 540
	}
	return []Video{{
		ID:          id,
		Title:       title,
		Channel:     "Kids Channel",
		URL:         "https://www.youtube.com/watch?v=" + id,
		DurationSec: dur,
		HasCaptions: true,
		Thumbnail:   "https://img.youtube.com/vi/" + id + "/hqdefault.jpg",
		Tags:        []string{cefr, char},
	}}
}

// getJSON issues a GET and decodes a 200 JSON response into out.
func (s *Service) getJSON(ctx context.Context, u string, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return s.doJSON(req, out)
}

func (s *Service) doJSON(req *http.Request, out any) error {
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

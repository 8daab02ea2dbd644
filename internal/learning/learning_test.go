package learning

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	toolcfg "github.com/kidslingo/kidslingo/internal/config/tool"
	"github.com/kidslingo/kidslingo/internal/contract"
	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/store"
)

type stubLLM struct {
	reply string
	err   error
	last  schema.Messages
}

func (s *stubLLM) Chat(_ context.Context, msgs schema.Messages, _ []map[string]any, _ schema.ChatOptions) (schema.LLMResponse, error) {
	s.last = msgs
	return schema.LLMResponse{Content: s.reply}, s.err
}

func (s *stubLLM) DefaultModel() string { return "stub" }

func newService(t *testing.T, mutate ...func(*Options)) *Service {
	t.Helper()
	opts := Options{Tools: toolcfg.DefaultToolConfigs()}
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts)
}

func withStore(t *testing.T) func(*Options) {
	return func(o *Options) {
		st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "kids.db"))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		o.Store = st
	}
}

func call(t *testing.T, s *Service, name string, args map[string]any) any {
	t.Helper()
	h, ok := s.AllHandlers()[name]
	require.True(t, ok, "handler %s", name)
	out, err := h(context.Background(), args)
	require.NoError(t, err)
	return out
}

// roundTrip returns the JSON view a model would see.
func roundTrip(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestHandlersCoverLearningContract(t *testing.T) {
	c, err := contract.Load(contract.Learning)
	require.NoError(t, err)
	handlers := newService(t).Handlers()
	for _, spec := range c.List() {
		assert.Contains(t, handlers, spec.Name)
	}

	basic, err := contract.Load(contract.Basic)
	require.NoError(t, err)
	for _, spec := range basic.List() {
		assert.Contains(t, newService(t).BasicHandlers(), spec.Name)
	}
}

func TestNew_InvalidAgeRulesUsesDefaults(t *testing.T) {
	s := newService(t, func(o *Options) { o.Tools.AgeRules = "not json" })
	key, _ := s.rules.Pick(5)
	assert.Equal(t, "4-6", key)
}

// ---------------------------------------------------------------------------
// Video search
// ---------------------------------------------------------------------------

func TestSearchYouTube_SampleWithoutKey(t *testing.T) {
	s := newService(t)
	cases := []struct {
		age   int
		id    string
		title string
		dur   int
	}{
		{5, "JY8cXbeAY3Y", "Pikachu ABC phonics song", 180},
		{7, "J---aiyznGQ", "Pikachu simple story for A1", 360},
		{12, "3JZ_D3ELwOQ", "Pikachu science for kids (A2)", 540},
	}
	for _, tc := range cases {
		out := call(t, s, "search_youtube_videos", map[string]any{"age": float64(tc.age), "cefr": "A1"})
		videos := out.([]Video)
		require.Len(t, videos, 1)
		assert.Equal(t, tc.id, videos[0].ID)
		assert.Equal(t, tc.title, videos[0].Title)
		assert.Equal(t, tc.dur, videos[0].DurationSec)
		assert.Equal(t, []string{"A1", "Pikachu"}, videos[0].Tags)
	}

	out := call(t, s, "search_youtube_videos", map[string]any{"age": float64(4), "cefr": "A1", "characters": []any{"Bluey"}})
	assert.Equal(t, "Bluey ABC phonics song", out.([]Video)[0].Title)
}

func TestSearchYouTube_ValidatesArguments(t *testing.T) {
	s := newService(t)
	_, err := s.SearchYouTubeVideos(context.Background(), map[string]any{"cefr": "A1"})
	assert.Error(t, err)
	_, err = s.SearchYouTubeVideos(context.Background(), map[string]any{"age": float64(20), "cefr": "A1"})
	assert.Error(t, err)
	_, err = s.SearchYouTubeVideos(context.Background(), map[string]any{"age": float64(5)})
	assert.Error(t, err)
}

func TestSearchYouTube_RanksFiltersAndLimits(t *testing.T) {
	var searches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yt-key", r.URL.Query().Get("key"))
		switch r.URL.Path {
		case "/search":
			atomic.AddInt32(&searches, 1)
			assert.Equal(t, "strict", r.URL.Query().Get("safeSearch"))
			assert.Equal(t, "closedCaption", r.URL.Query().Get("videoCaption"))
			io.WriteString(w, `{"items":[{"id":{"videoId":"v1"}},{"id":{"videoId":"v2"}},{"id":{"videoId":"v3"}},{"id":{}}]}`)
		case "/videos":
			assert.Equal(t, "v1,v2,v3", r.URL.Query().Get("id"))
			io.WriteString(w, `{"items":[
				{"id":"v1","snippet":{"title":"Cooking show","channelTitle":"Chef"},"contentDetails":{"duration":"PT3M","caption":"false"}},
				{"id":"v2","snippet":{"title":"Bluey phonics fun","channelTitle":"Bluey","thumbnails":{"high":{"url":"http://t/2"}}},"contentDetails":{"duration":"PT4M","caption":"true"}},
				{"id":"v3","snippet":{"title":"Bluey long movie","channelTitle":"Bluey"},"contentDetails":{"duration":"PT1H","caption":"true"}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s := newService(t, func(o *Options) {
		o.Tools.YouTube.APIKey = "yt-key"
		o.Endpoints.YouTube = srv.URL
	})
	out := call(t, s, "search_youtube_videos", map[string]any{
		"age": float64(5), "cefr": "PREA1", "characters": []any{"블루이"}, "max": float64(1),
	})
	videos := out.([]Video)
	require.Len(t, videos, 1)
	assert.Equal(t, "v2", videos[0].ID)
	assert.Equal(t, 240, videos[0].DurationSec)
	assert.True(t, videos[0].HasCaptions)
	assert.Equal(t, "http://t/2", videos[0].Thumbnail)
	assert.Equal(t, "https://www.youtube.com/watch?v=v2", videos[0].URL)
	assert.Equal(t, int32(4), atomic.LoadInt32(&searches))
}

func TestSearchYouTube_NoIDsReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items":[]}`)
	}))
	defer srv.Close()

	s := newService(t, func(o *Options) {
		o.Tools.YouTube.APIKey = "k"
		o.Endpoints.YouTube = srv.URL
	})
	out := call(t, s, "search_youtube_videos", map[string]any{"age": float64(5), "cefr": "A1"})
	assert.Empty(t, out.([]Video))
}

func TestSearchYouTube_DetailsFailureFallsBackToSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			io.WriteString(w, `{"items":[{"id":{"videoId":"v1"}}]}`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newService(t, func(o *Options) {
		o.Tools.YouTube.APIKey = "k"
		o.Endpoints.YouTube = srv.URL
	})
	out := call(t, s, "search_youtube_videos", map[string]any{"age": float64(5), "cefr": "A1"})
	assert.Equal(t, "JY8cXbeAY3Y", out.([]Video)[0].ID)
}

// ---------------------------------------------------------------------------
// Transcript helpers
// ---------------------------------------------------------------------------

func TestIndexVideo_StableTranscriptID(t *testing.T) {
	s := newService(t)
	a := roundTrip(t, call(t, s, "index_video", map[string]any{"videoUrl": "https://youtu.be/x"}))
	b := roundTrip(t, call(t, s, "index_video", map[string]any{"videoUrl": "https://youtu.be/x"}))
	assert.Equal(t, a["transcriptId"], b["transcriptId"])
	assert.True(t, strings.HasPrefix(a["transcriptId"].(string), "tx_"))
	assert.Equal(t, "en", a["lang"])

	_, err := s.IndexVideo(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestRankVideoByLevel(t *testing.T) {
	out := roundTrip(t, call(t, newService(t), "rank_video_by_level", map[string]any{"transcriptId": "tx_1", "cefr": "A2"}))
	assert.Equal(t, 0.72, out["score"])
	assert.Equal(t, []any{"Matches A2", "Short sentences"}, out["reasons"])
}

func TestExtractTopWords_Count(t *testing.T) {
	s := newService(t)
	words := call(t, s, "extract_top_words", map[string]any{"transcriptId": "tx_1", "cefr": "A1", "count": float64(2)}).([]WordEntry)
	require.Len(t, words, 2)
	assert.Equal(t, "forest", words[0].Word)
	assert.Equal(t, "climb", words[1].Word)

	words = call(t, s, "extract_top_words", map[string]any{"transcriptId": "tx_1", "cefr": "A1"}).([]WordEntry)
	assert.Len(t, words, 3)
}

func TestExtractTopExpressions(t *testing.T) {
	out := roundTrip(t, call(t, newService(t), "extract_top_expressions", map[string]any{"transcriptId": "tx_1", "count": float64(2)}))
	assert.Equal(t, []any{"Let's go!", "Good job!"}, out["phrases"])

	llm := &stubLLM{reply: "```json\n{\"phrases\": [\"Look at me\", \" \", \"My turn\", \"Well done\"]}\n```"}
	s := newService(t, func(o *Options) { o.LLM = llm })
	out = roundTrip(t, call(t, s, "extract_top_expressions", map[string]any{"transcriptId": "tx_1"}))
	assert.Equal(t, []any{"Look at me", "My turn", "Well done"}, out["phrases"])
	assert.Contains(t, llm.last.Messages[1].Content, "transcriptId: tx_1")
}

func TestParsePhrases(t *testing.T) {
	assert.Equal(t, []string{"a b"}, parsePhrases(`{"items":["a b"]}`))
	assert.Equal(t, []string{"x", "y"}, parsePhrases(`["x","y"]`))
	assert.Empty(t, parsePhrases(`not json`))
}

func TestExampleSentence(t *testing.T) {
	out := roundTrip(t, call(t, newService(t), "example_sentence", map[string]any{"word": "brave", "cefr": "A1"}))
	assert.Equal(t, "The brave is fun to say.", out["sentence"])

	llm := &stubLLM{reply: "<think>hmm</think> Bluey is brave today. "}
	s := newService(t, func(o *Options) { o.LLM = llm })
	out = roundTrip(t, call(t, s, "example_sentence", map[string]any{
		"word": "brave", "cefr": "A1", "context": map[string]any{"videoTitle": "Bluey", "character": "Bingo"},
	}))
	assert.Equal(t, "Bluey is brave today.", out["sentence"])
	assert.Contains(t, llm.last.Messages[1].Content, "videoTitle: Bluey character: Bingo")

	failing := newService(t, func(o *Options) { o.LLM = &stubLLM{err: assert.AnError} })
	out = roundTrip(t, call(t, failing, "example_sentence", map[string]any{"word": "tree", "cefr": "A1"}))
	assert.Equal(t, "The tree is fun to say.", out["sentence"])
}

// ---------------------------------------------------------------------------
// Profiles, preferences and progress
// ---------------------------------------------------------------------------

func TestProfileAndPrefs_WithoutStore(t *testing.T) {
	s := newService(t)
	assert.Equal(t, map[string]any{"ok": false, "storedId": nil}, call(t, s, "save_profile", map[string]any{"childId": "k1", "name": "Mina"}))
	assert.Equal(t, map[string]any{"ok": false, "profile": nil}, call(t, s, "load_profile", map[string]any{"childId": "k1"}))
	assert.Equal(t, map[string]any{"ok": false, "error": "store_not_configured"}, call(t, s, "save_prefs", map[string]any{"childId": "k1"}))
	assert.Equal(t, map[string]any{"ok": false, "error": "store_not_configured"}, call(t, s, "load_prefs", map[string]any{"childId": "k1"}))

	_, err := s.SavePrefs(context.Background(), map[string]any{})
	assert.EqualError(t, err, "childId required")
}

func TestProfileRoundTrip(t *testing.T) {
	s := newService(t, withStore(t))

	missing := roundTrip(t, call(t, s, "load_profile", map[string]any{"childId": "k1"}))
	assert.Equal(t, true, missing["ok"])
	assert.Nil(t, missing["profile"])

	saved := roundTrip(t, call(t, s, "save_profile", map[string]any{
		"childId": "k1", "name": "Mina", "age": float64(6), "region": "Seoul",
		"study": "video", "characters": []any{"Bluey"}, "cefr": "A1", "interest": float64(4),
	}))
	assert.Equal(t, map[string]any{"ok": true, "storedId": "profile_k1"}, saved)

	loaded := roundTrip(t, call(t, s, "load_profile", map[string]any{"childId": "k1"}))
	profile := loaded["profile"].(map[string]any)
	assert.Equal(t, "Mina", profile["name"])
	assert.Equal(t, float64(6), profile["age"])
	assert.Equal(t, []any{"Bluey"}, profile["characters"])
	assert.Equal(t, float64(4), profile["interest"])
}

func TestPrefsRoundTrip(t *testing.T) {
	s := newService(t, withStore(t))

	empty := roundTrip(t, call(t, s, "load_prefs", map[string]any{"childId": "k1"}))
	assert.Equal(t, []any{}, empty["recent_videos"])

	call(t, s, "save_prefs", map[string]any{"childId": "k1", "recent_videos": []any{"v1"}, "favorite_videos": []any{"v2"}})
	got := roundTrip(t, call(t, s, "load_prefs", map[string]any{"childId": "k1"}))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, []any{"v1"}, got["recent_videos"])
	assert.Equal(t, []any{"v2"}, got["favorite_videos"])
}

func TestProgress_WithoutStore(t *testing.T) {
	s := newService(t)
	out := call(t, s, "update_progress", map[string]any{"childId": "k1", "videoId": "v1", "durationSec": float64(60)})
	assert.Equal(t, map[string]any{"ok": true, "newLevel": "A1", "streak": 3}, out)

	lvl := roundTrip(t, call(t, s, "compute_level", map[string]any{"childId": "k1"}))
	assert.Equal(t, "A1", lvl["cefr"])
	assert.Equal(t, 0.78, lvl["confidence"])

	report := roundTrip(t, call(t, s, "parent_report", map[string]any{"childId": "k1"}))
	assert.Equal(t, float64(4), report["kpis"].(map[string]any)["sessions"])
}

func TestProgress_StreakLevelAndReport(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.Local)
	clock := now
	s := newService(t, withStore(t), func(o *Options) { o.Now = func() time.Time { return clock } })

	call(t, s, "save_profile", map[string]any{"childId": "k1", "name": "Mina", "cefr": "A1"})

	for i := 3; i >= 0; i-- {
		clock = now.AddDate(0, 0, -i)
		call(t, s, "update_progress", map[string]any{
			"childId": "k1", "videoId": "v", "learnedWords": []any{"tree", "brave"},
			"quizScore": float64(90), "durationSec": float64(120),
		})
	}
	clock = now

	out := roundTrip(t, call(t, s, "update_progress", map[string]any{"childId": "k1", "videoId": "v9", "durationSec": float64(60), "learnedWords": []any{"climb"}}))
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "A2", out["newLevel"])
	assert.Equal(t, float64(4), out["streak"])

	lvl := roundTrip(t, call(t, s, "compute_level", map[string]any{"childId": "k1"}))
	assert.Equal(t, "A2", lvl["cefr"])
	assert.Equal(t, 0.7, lvl["confidence"])
	assert.Equal(t, float64(9), lvl["deltas"].(map[string]any)["A2"])

	report := roundTrip(t, call(t, s, "parent_report", map[string]any{"childId": "k1", "period": "7d"}))
	kpis := report["kpis"].(map[string]any)
	assert.Equal(t, float64(5), kpis["sessions"])
	assert.Equal(t, float64(9), kpis["watchMin"])
	assert.Equal(t, float64(3), kpis["wordsLearned"])
	series := report["chartData"].(map[string]any)["series"].([]any)[0].(map[string]any)["data"].([]any)
	assert.Len(t, series, 7)
	assert.Contains(t, report["summaryText"], "5 sessions")

	monthly := roundTrip(t, call(t, s, "parent_report", map[string]any{"childId": "k1", "period": "30d"}))
	assert.Len(t, monthly["chartData"].(map[string]any)["series"].([]any)[0].(map[string]any)["data"], 4)

	_, err := s.ParentReport(context.Background(), map[string]any{"childId": "k1", "period": "1y"})
	assert.Error(t, err)
}

func TestUpdateProgress_RejectsBadQuizScore(t *testing.T) {
	s := newService(t, withStore(t))
	_, err := s.UpdateProgress(context.Background(), map[string]any{"childId": "k", "videoId": "v", "quizScore": float64(120)})
	assert.Error(t, err)
}

func TestStepLevel(t *testing.T) {
	assert.Equal(t, "A2", stepLevel("A1", 1))
	assert.Equal(t, "PREA1", stepLevel("PREA1", -1))
	assert.Equal(t, "B2", stepLevel("B2", 1))
	assert.Equal(t, "C1", stepLevel("C1", 1))
}

// ---------------------------------------------------------------------------
// Academies
// ---------------------------------------------------------------------------

func TestFindLocalAcademies_SampleWithoutKey(t *testing.T) {
	out := call(t, newService(t), "find_local_academies", map[string]any{"address": "Seoul Gangnam"}).([]Academy)
	require.Len(t, out, 1)
	assert.Equal(t, "해피 잉글리시", out[0].Name)
	assert.Equal(t, "Seoul Gangnam", out[0].Address)
	assert.Equal(t, 850, *out[0].DistanceM)
}

func TestFindLocalAcademies_GeocodesAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "maps-key", r.URL.Query().Get("subscription-key"))
		switch r.URL.Path {
		case "/search/address/json":
			io.WriteString(w, `{"results":[{"position":{"lat":37.5,"lon":127.0}}]}`)
		case "/search/fuzzy/json":
			assert.Equal(t, "1500", r.URL.Query().Get("radius"))
			io.WriteString(w, `{"results":[
				{"poi":{"id":"p1","name":"ABC English","phone":"02-111"},"address":{"freeformAddress":"1 Main"},"position":{"lat":37.51,"lon":127.01},"dist":420.7},
				{"poi":{"id":"p2"},"address":{"freeformAddress":"2 Main"}}
			]}`)
		}
	}))
	defer srv.Close()

	s := newService(t, func(o *Options) {
		o.Tools.Maps.APIKey = "maps-key"
		o.Endpoints.Maps = srv.URL
	})
	out := call(t, s, "find_local_academies", map[string]any{"address": "Seoul", "radiusMeters": float64(1500)}).([]Academy)
	require.Len(t, out, 2)
	assert.Equal(t, "ABC English", out[0].Name)
	assert.Equal(t, "02-111", *out[0].Phone)
	assert.Equal(t, 420, *out[0].DistanceM)
	assert.Equal(t, "https://www.bing.com/maps?cp=37.51~127.01", *out[0].MapURL)
	assert.Equal(t, "학원", out[1].Name)
	assert.Nil(t, out[1].DistanceM)
}

func TestFindLocalAcademies_GeocodeMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results":[]}`)
	}))
	defer srv.Close()
	s := newService(t, func(o *Options) {
		o.Tools.Maps.APIKey = "k"
		o.Endpoints.Maps = srv.URL
	})
	assert.Empty(t, call(t, s, "find_local_academies", map[string]any{"address": "nowhere"}))
}

func TestSearchAcademiesAI(t *testing.T) {
	assert.Empty(t, call(t, newService(t), "search_academies_ai", map[string]any{"region": "Seoul"}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes/kidsenglish/docs", r.URL.Path)
		assert.Equal(t, "search-key", r.Header.Get("api-key"))
		assert.Equal(t, "english academy kids Seoul", r.URL.Query().Get("search"))
		assert.Equal(t, "2", r.URL.Query().Get("$top"))
		io.WriteString(w, `{"value":[{"title":"Kids Eng","tel":"010","lat":1.5,"lon":2.5},{"name":"B"},{"name":"C"}]}`)
	}))
	defer srv.Close()

	s := newService(t, func(o *Options) {
		o.Tools.Search.Endpoint = srv.URL
		o.Tools.Search.APIKey = "search-key"
	})
	out := call(t, s, "search_academies_ai", map[string]any{"region": "Seoul", "topK": float64(2)}).([]Academy)
	require.Len(t, out, 2)
	assert.Equal(t, "Kids Eng", out[0].Name)
	assert.Equal(t, "Seoul", out[0].Address)
	assert.Equal(t, "010", *out[0].Phone)
	assert.Equal(t, "https://www.bing.com/maps?cp=1.5~2.5", *out[0].MapURL)
}

// ---------------------------------------------------------------------------
// Speech
// ---------------------------------------------------------------------------

func speechServer(t *testing.T, wantVoice string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "speech-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/ssml+xml", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), wantVoice)
		w.Write([]byte("MP3"))
	}))
}

func withSpeech(srv *httptest.Server) func(*Options) {
	return func(o *Options) {
		o.Tools.Speech.Region = "koreacentral"
		o.Tools.Speech.APIKey = "speech-key"
		o.Endpoints.Speech = srv.URL + "/{region}"
	}
}

func TestPlayCheer(t *testing.T) {
	assert.Equal(t, map[string]any{"audioUrl": nil}, call(t, newService(t), "play_cheer", map[string]any{}))

	srv := speechServer(t, "en-US-JennyNeural")
	defer srv.Close()
	s := newService(t, withSpeech(srv))
	out := call(t, s, "play_cheer", map[string]any{"voice": "adult"}).(map[string]any)
	assert.Equal(t, "data:audio/mpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("MP3")), out["audioUrl"])
}

func TestSayWord(t *testing.T) {
	empty := call(t, newService(t), "say_word", map[string]any{"word": "tree"})
	assert.Equal(t, map[string]any{"audioUrl": nil, "audioB64": nil, "contentType": nil}, empty)

	srv := speechServer(t, "en-US-AvaNeural")
	defer srv.Close()
	s := newService(t, withSpeech(srv))
	out := call(t, s, "say_word", map[string]any{"word": "<tree>"}).(map[string]any)
	assert.Equal(t, "audio/mpeg", out["contentType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("MP3")), out["audioB64"])
}

// ---------------------------------------------------------------------------
// Basic tools
// ---------------------------------------------------------------------------

func TestSearchDocs(t *testing.T) {
	out := roundTrip(t, call(t, newService(t), "search_docs", map[string]any{"query": "phonics"}))
	hits := out["results"].([]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "env-missing", hits[0].(map[string]any)["id"])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/indexes/curriculum/docs/search", r.URL.Path)
		assert.Equal(t, "2024-12-01-preview", r.URL.Query().Get("api-version"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "semantic", body["queryType"])
		assert.Equal(t, float64(5), body["top"])
		io.WriteString(w, `{"value":[{"@search.documentId":"d1","content":"Phonics unit 1","url":"http://doc"}]}`)
	}))
	defer srv.Close()

	s := newService(t, func(o *Options) {
		o.Tools.Search = toolcfg.SearchConfig{Endpoint: srv.URL, APIKey: "k", Index: "curriculum"}
	})
	out = roundTrip(t, call(t, s, "search_docs", map[string]any{"query": "phonics"}))
	hit := out["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "d1", hit["id"])
	assert.Equal(t, "Phonics unit 1", hit["content"])
	assert.Equal(t, "http://doc", hit["source"])
}

func TestSearchDocs_BackendErrorIsToolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	s := newService(t, func(o *Options) {
		o.Tools.Search = toolcfg.SearchConfig{Endpoint: srv.URL, APIKey: "k", Index: "i"}
	})
	_, err := s.SearchDocs(context.Background(), map[string]any{"query": "x"})
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	cases := map[string]string{
		"2+2":          "4",
		"(1+2)*3":      "9",
		"7/2":          "3.5",
		"4/2":          "2",
		"-3 + 10 % 4":  "-1",
		"1.5*2":        "3",
		"100000*100000": "10000000000",
	}
	for expr, want := range cases {
		got, err := Evaluate(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, want, got, expr)
	}

	for _, bad := range []string{"1/0", "os.Exit(1)", "x+1", `"a"+"b"`, "1 <<", "2 << 3", "5.5 % 2"} {
		_, err := Evaluate(bad)
		assert.Error(t, err, bad)
	}
}

func TestQuickCalc(t *testing.T) {
	out, err := QuickCalc(context.Background(), map[string]any{"expr": "6*7"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": "42"}, out)

	_, err = QuickCalc(context.Background(), map[string]any{})
	assert.Error(t, err)
}

// Package learning implements the tutoring tools: video search and ranking,
// transcript helpers, progress tracking, academy search, speech and the
// profile/preference documents. Each tool is a plain executor.Handler, so the
// same table serves the in-process executor and the HTTP tool server.
package learning

import (
	"log/slog"
	"net/http"
	"time"

	toolcfg "github.com/kidslingo/kidslingo/internal/config/tool"
	"github.com/kidslingo/kidslingo/internal/executor"
	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/store"
)

const userAgent = "kidslingo/0.1"

// Endpoints are the third-party API roots. Zero fields use the public services.
type Endpoints struct {
	YouTube string // https://www.googleapis.com/youtube/v3
	Maps    string // https://atlas.microsoft.com
	Speech  string // URL template containing {region}
}

func (e Endpoints) withDefaults() Endpoints {
	if e.YouTube == "" {
		e.YouTube = "https://www.googleapis.com/youtube/v3"
	}
	if e.Maps == "" {
		e.Maps = "https://atlas.microsoft.com"
	}
	if e.Speech == "" {
		e.Speech = "https://{region}.tts.speech.microsoft.com/cognitiveservices/v1"
	}
	return e
}

// Options configures a Service.
type Options struct {
	Tools      toolcfg.ToolsConfig
	Store      store.Store        // nil disables persistence
	LLM        schema.LLMProvider // nil uses the built-in fallbacks
	Model      string
	HTTPClient *http.Client
	Endpoints  Endpoints
	Now        func() time.Time
}

// Service holds the collaborators shared by every tool handler.
type Service struct {
	cfg       toolcfg.ToolsConfig
	store     store.Store
	llm       schema.LLMProvider
	model     string
	http      *http.Client
	endpoints Endpoints
	rules     AgeRules
	now       func() time.Time
}

// New creates a Service. An invalid age rule override is logged and the
// built-in buckets are used instead.
func New(opts Options) *Service {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rules := DefaultAgeRules()
	if opts.Tools.AgeRules != "" {
		parsed, err := ParseAgeRules(opts.Tools.AgeRules)
		if err != nil {
			slog.Warn("Ignoring age rule override", "err", err)
		} else {
			rules = parsed
		}
	}
	return &Service{
		cfg:       opts.Tools,
		store:     opts.Store,
		llm:       opts.LLM,
		model:     opts.Model,
		http:      client,
		endpoints: opts.Endpoints.withDefaults(),
		rules:     rules,
		now:       now,
	}
}

// Handlers returns the learning tool table.
func (s *Service) Handlers() map[string]executor.Handler {
	return map[string]executor.Handler{
		"search_youtube_videos":   s.SearchYouTubeVideos,
		"index_video":             s.IndexVideo,
		"rank_video_by_level":     s.RankVideoByLevel,
		"extract_top_words":       s.ExtractTopWords,
		"extract_top_expressions": s.ExtractTopExpressions,
		"example_sentence":        s.ExampleSentence,
		"update_progress":         s.UpdateProgress,
		"compute_level":           s.ComputeLevel,
		"find_local_academies":    s.FindLocalAcademies,
		"search_academies_ai":     s.SearchAcademiesAI,
		"play_cheer":              s.PlayCheer,
		"say_word":                s.SayWord,
		"save_profile":            s.SaveProfile,
		"load_profile":            s.LoadProfile,
		"save_prefs":              s.SavePrefs,
		"load_prefs":              s.LoadPrefs,
		"parent_report":           s.ParentReport,
	}
}

// BasicHandlers returns the document search and calculator tools.
func (s *Service) BasicHandlers() map[string]executor.Handler {
	return map[string]executor.Handler{
		"search_docs": s.SearchDocs,
		"quick_calc":  QuickCalc,
	}
}

// AllHandlers merges every tool this package implements.
func (s *Service) AllHandlers() map[string]executor.Handler {
	return executor.Merge(s.Handlers(), s.BasicHandlers())
}

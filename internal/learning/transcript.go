package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/kidslingo/kidslingo/internal/schema"
	"github.com/kidslingo/kidslingo/internal/shared/llmutils"
)

// WordEntry is one vocabulary item taken from a transcript.
type WordEntry struct {
	Word       string `json:"word"`
	POS        string `json:"pos"`
	CEFR       string `json:"cefr"`
	Definition string `json:"definition,omitempty"`
	IPA        string `json:"ipa,omitempty"`
	AudioURL   string `json:"audioUrl,omitempty"`
}

var topWords = []WordEntry{
	{Word: "forest", POS: "noun", CEFR: "A1", Definition: "a large area of trees"},
	{Word: "climb", POS: "verb", CEFR: "A1", Definition: "go up something"},
	{Word: "brave", POS: "adj", CEFR: "A2", Definition: "showing no fear"},
}

var fallbackExpressions = []string{"Let's go!", "Good job!", "Come on!"}

// TranscriptID derives a stable transcript id from a video URL.
func TranscriptID(videoURL string) string {
	h := fnv.New64a()
	h.Write([]byte(videoURL))
	return fmt.Sprintf("tx_%d", h.Sum64()%10_000_000)
}

// IndexVideo registers a video transcript and returns its id and word counts.
func (s *Service) IndexVideo(_ context.Context, args map[string]any) (any, error) {
	videoURL, err := requireString(args, "videoUrl")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"transcriptId": TranscriptID(videoURL),
		"lang":         "en",
		"wordCounts":   map[string]int{"forest": 3, "brave": 2, "climb": 4},
		"segments":     []map[string]any{{"t0": 0, "t1": 12, "text": "Hello friends"}},
	}, nil
}

// RankVideoByLevel scores a transcript against a CEFR level.
func (s *Service) RankVideoByLevel(_ context.Context, args map[string]any) (any, error) {
	if _, err := requireString(args, "transcriptId"); err != nil {
		return nil, err
	}
	cefr, err := requireString(args, "cefr")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"score":   0.72,
		"reasons": []string{"Matches " + cefr, "Short sentences"},
	}, nil
}

// ExtractTopWords returns up to count vocabulary entries.
func (s *Service) ExtractTopWords(_ context.Context, args map[string]any) (any, error) {
	if _, err := requireString(args, "transcriptId"); err != nil {
		return nil, err
	}
	n := clamp(intArg(args, "count", 5), 1, 10)
	if n > len(topWords) {
		n = len(topWords)
	}
	out := make([]WordEntry, n)
	copy(out, topWords)
	return out, nil
}

// ExtractTopExpressions asks the model for short reusable phrases.
func (s *Service) ExtractTopExpressions(ctx context.Context, args map[string]any) (any, error) {
	transcriptID, err := requireString(args, "transcriptId")
	if err != nil {
		return nil, err
	}
	n := clamp(intArg(args, "count", 3), 1, 5)

	var phrases []string
	if reply, ok := s.ask(ctx,
		"You are a kids' English tutor. From a children's video transcript, extract short, "+
			"high-frequency everyday expressions useful for kids. Return ONLY a JSON object "+
			`{"phrases": [...]} of distinct phrases, each 2-5 words, kid-appropriate, simple, reusable.`,
		fmt.Sprintf("transcriptId: %s\ncount: %d\nIf transcript not available, output common phrases for kids.", transcriptID, n),
	); ok {
		phrases = parsePhrases(reply)
	}
	if len(phrases) == 0 {
		phrases = fallbackExpressions
	}
	if len(phrases) > n {
		phrases = phrases[:n]
	}
	return map[string]any{"phrases": phrases}, nil
}

// parsePhrases accepts {"phrases": [...]}, {"items": [...]} or a bare array.
func parsePhrases(reply string) []string {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var arr []any
	var obj map[string]any
	if err := json.Unmarshal([]byte(reply), &obj); err == nil {
		if v, ok := obj["phrases"].([]any); ok {
			arr = v
		} else if v, ok := obj["items"].([]any); ok {
			arr = v
		}
	} else if err := json.Unmarshal([]byte(reply), &arr); err != nil {
		return nil
	}

	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ExampleSentence generates one short kid-friendly sentence for a word.
func (s *Service) ExampleSentence(ctx context.Context, args map[string]any) (any, error) {
	word, err := requireString(args, "word")
	if err != nil {
		return nil, err
	}
	cefr := stringArg(args, "cefr")
	videoCtx := mapArg(args, "context")

	sentence, ok := s.ask(ctx,
		"You are a kids' English tutor. Generate ONE short, positive, kid-friendly sentence in "+
			"English using the given word. Max 10 words. Avoid names or sensitive content.",
		fmt.Sprintf("word: %s\ncefr: %s\nvideoTitle: %v character: %v\nReturn only the sentence.",
			word, cefr, orEmpty(videoCtx["videoTitle"]), orEmpty(videoCtx["character"])),
	)
	if !ok {
		sentence = fmt.Sprintf("The %s is fun to say.", word)
	}
	return map[string]any{"sentence": sentence}, nil
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

// ask runs a single tool-free completion. ok is false when no model is
// configured, the call fails, or the reply is empty.
func (s *Service) ask(ctx context.Context, system, user string) (string, bool) {
	if s.llm == nil {
		return "", false
	}
	model := s.model
	if model == "" {
		model = s.llm.DefaultModel()
	}
	msgs := schema.NewMessages(schema.NewSystemMessage(system), schema.NewUserMessage(user))
	resp, err := s.llm.Chat(ctx, msgs, nil, schema.NewChatOptions(model, 256, 0.2, ""))
	if err != nil {
		slog.Warn("Tool completion failed", "err", err)
		return "", false
	}
	reply := llmutils.StripThink(resp.Content)
	return reply, reply != ""
}

package learning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kidslingo/kidslingo/internal/shared/idutils"
	"github.com/kidslingo/kidslingo/internal/store"
)

const errStoreNotConfigured = "store_not_configured"

var cefrLadder = []string{"PREA1", "A1", "A2", "B1", "B2"}

func profileID(childID string) string { return "profile_" + childID }
func prefsID(childID string) string   { return "prefs_" + childID }

// ---------------------------------------------------------------------------
// Profiles and preferences
// ---------------------------------------------------------------------------

// SaveProfile stores the child's profile document.
func (s *Service) SaveProfile(ctx context.Context, args map[string]any) (any, error) {
	childID, err := requireString(args, "childId")
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return map[string]any{"ok": false, "storedId": nil}, nil
	}
	body := map[string]any{
		"childId":    childID,
		"name":       stringArg(args, "name"),
		"age":        intArg(args, "age", 0),
		"region":     stringArg(args, "region"),
		"study":      stringArg(args, "study"),
		"characters": stringsArg(args, "characters"),
		"cefr":       stringArg(args, "cefr"),
		"updatedAt":  s.now().UTC().Format(time.RFC3339),
	}
	if v, ok := args["interest"]; ok && v != nil {
		body["interest"] = intArg(args, "interest", 0)
	} else {
		body["interest"] = nil
	}
	id := profileID(childID)
	if err := s.store.Upsert(ctx, store.Document{ID: id, Kind: store.KindProfile, ChildID: childID, Body: body}); err != nil {
		return map[string]any{"ok": false, "storedId": nil, "error": err.Error()}, nil
	}
	return map[string]any{"ok": true, "storedId": id}, nil
}

// LoadProfile returns the stored profile, or a nil profile when none exists.
func (s *Service) LoadProfile(ctx context.Context, args map[string]any) (any, error) {
	childID, err := requireString(args, "childId")
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return map[string]any{"ok": false, "profile": nil}, nil
	}
	doc, err := s.store.Get(ctx, profileID(childID))
	if err != nil {
		return map[string]any{"ok": true, "profile": nil}, nil
	}
	profile := map[string]any{}
	for _, k := range []string{"childId", "name", "age", "region", "study", "characters", "cefr", "interest"} {
		profile[k] = doc.Body[k]
	}
	if profile["characters"] == nil {
		profile["characters"] = []any{}
	}
	return map[string]any{"ok": true, "profile": profile}, nil
}

// SavePrefs stores recent and favourite videos.
func (s *Service) SavePrefs(ctx context.Context, args map[string]any) (any, error) {
	childID := stringArg(args, "childId")
	if childID == "" {
		return nil, errors.New("childId required")
	}
	if s.store == nil {
		return map[string]any{"ok": false, "error": errStoreNotConfigured}, nil
	}
	body := map[string]any{
		"childId":         childID,
		"recent_videos":   listOrEmpty(args["recent_videos"]),
		"favorite_videos": listOrEmpty(args["favorite_videos"]),
	}
	if err := s.store.Upsert(ctx, store.Document{ID: prefsID(childID), Kind: store.KindPrefs, ChildID: childID, Body: body}); err != nil {
		return map[string]any{"ok": false, "error": err.Error()}, nil
	}
	return map[string]any{"ok": true}, nil
}

// LoadPrefs returns stored preferences, empty lists when none exist.
func (s *Service) LoadPrefs(ctx context.Context, args map[string]any) (any, error) {
	childID := stringArg(args, "childId")
	if childID == "" {
		return nil, errors.New("childId required")
	}
	if s.store == nil {
		return map[string]any{"ok": false, "error": errStoreNotConfigured}, nil
	}
	doc, err := s.store.Get(ctx, prefsID(childID))
	if err != nil {
		return map[string]any{"ok": true, "recent_videos": []any{}, "favorite_videos": []any{}}, nil
	}
	return map[string]any{
		"ok":              true,
		"recent_videos":   listOrEmpty(doc.Body["recent_videos"]),
		"favorite_videos": listOrEmpty(doc.Body["favorite_videos"]),
	}, nil
}

func listOrEmpty(v any) any {
	if list, ok := v.([]any); ok {
		return list
	}
	if list, ok := v.([]string); ok {
		return list
	}
	return []any{}
}

// ---------------------------------------------------------------------------
// Progress and level
// ---------------------------------------------------------------------------

type session struct {
	at       time.Time
	words    []string
	quiz     int // -1 when no quiz was taken
	duration int
}

func toSession(d store.Document) session {
	sess := session{at: d.CreatedAt, quiz: -1, words: stringsArg(d.Body, "learnedWords")}
	sess.duration = intArg(d.Body, "durationSec", 0)
	if v, ok := d.Body["quizScore"]; ok && v != nil {
		sess.quiz = intArg(d.Body, "quizScore", -1)
	}
	return sess
}

func (s *Service) sessions(ctx context.Context, childID string, since time.Time) ([]session, error) {
	docs, err := s.store.ListByChild(ctx, store.KindProgress, childID, since)
	if err != nil {
		return nil, err
	}
	out := make([]session, 0, len(docs))
	for _, d := range docs {
		out = append(out, toSession(d))
	}
	return out, nil
}

// UpdateProgress records a finished session and returns the new level and
// day streak.
func (s *Service) UpdateProgress(ctx context.Context, args map[string]any) (any, error) {
	childID, err := requireString(args, "childId")
	if err != nil {
		return nil, err
	}
	videoID, err := requireString(args, "videoId")
	if err != nil {
		return nil, err
	}
	duration := intArg(args, "durationSec", 0)
	if duration < 0 {
		return nil, fmt.Errorf("durationSec must be >= 0")
	}
	if s.store == nil {
		return map[string]any{"ok": true, "newLevel": "A1", "streak": 3}, nil
	}

	body := map[string]any{
		"childId":      childID,
		"videoId":      videoID,
		"learnedWords": stringsArg(args, "learnedWords"),
		"durationSec":  duration,
	}
	if v, ok := args["quizScore"]; ok && v != nil {
		q := intArg(args, "quizScore", 0)
		if q < 0 || q > 100 {
			return nil, fmt.Errorf("quizScore must be between 0 and 100")
		}
		body["quizScore"] = q
	}
	doc := store.Document{
		ID:        "progress_" + idutils.NewID(),
		Kind:      store.KindProgress,
		ChildID:   childID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.store.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("record progress: %w", err)
	}

	all, err := s.sessions(ctx, childID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	level, _, _ := s.estimateLevel(ctx, childID, all)
	return map[string]any{"ok": true, "newLevel": level, "streak": streak(all, s.now())}, nil
}

// ComputeLevel estimates the child's CEFR level from recorded sessions.
func (s *Service) ComputeLevel(ctx context.Context, args map[string]any) (any, error) {
	childID, err := requireString(args, "childId")
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return map[string]any{"cefr": "A1", "confidence": 0.78, "deltas": map[string]int{"A1": 3, "A2": 1}}, nil
	}
	all, err := s.sessions(ctx, childID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	level, confidence, deltas := s.estimateLevel(ctx, childID, all)
	return map[string]any{"cefr": level, "confidence": confidence, "deltas": deltas}, nil
}

// estimateLevel starts from the profile level (A1 if unknown) and moves one
// step up when the last five quizzes average 80 or more, one step down when
// they average under 40. Confidence grows with the number of sessions.
// Deltas count words learned in the last week.
func (s *Service) estimateLevel(ctx context.Context, childID string, all []session) (string, float64, map[string]int) {
	level := "A1"
	if doc, err := s.store.Get(ctx, profileID(childID)); err == nil {
		if c, _ := doc.Body["cefr"].(string); c != "" {
			level = c
		}
	}

	var quizzes []int
	for i := len(all) - 1; i >= 0 && len(quizzes) < 5; i-- {
		if all[i].quiz >= 0 {
			quizzes = append(quizzes, all[i].quiz)
		}
	}
	if len(quizzes) >= 3 {
		sum := 0
		for _, q := range quizzes {
			sum += q
		}
		avg := float64(sum) / float64(len(quizzes))
		switch {
		case avg >= 80:
			level = stepLevel(level, 1)
		case avg < 40:
			level = stepLevel(level, -1)
		}
	}

	confidence := math.Min(0.5+0.04*float64(len(all)), 0.95)
	confidence = math.Round(confidence*100) / 100

	weekAgo := s.now().Add(-7 * 24 * time.Hour)
	words := 0
	for _, sess := range all {
		if !sess.at.Before(weekAgo) {
			words += len(sess.words)
		}
	}
	return level, confidence, map[string]int{level: words}
}

func stepLevel(level string, step int) string {
	for i, l := range cefrLadder {
		if l == level {
			return cefrLadder[clamp(i+step, 0, len(cefrLadder)-1)]
		}
	}
	return level
}

// streak counts consecutive days with at least one session, ending today
// or yesterday.
func streak(all []session, now time.Time) int {
	days := map[string]bool{}
	for _, sess := range all {
		days[sess.at.Local().Format("2006-01-02")] = true
	}
	day := now.Local()
	if !days[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for days[day.Format("2006-01-02")] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// ---------------------------------------------------------------------------
// Parent report
// ---------------------------------------------------------------------------

var reportPeriods = map[string]int{"7d": 7, "30d": 30, "90d": 90}

// ParentReport aggregates the child's sessions over the period.
func (s *Service) ParentReport(ctx context.Context, args map[string]any) (any, error) {
	childID, err := requireString(args, "childId")
	if err != nil {
		return nil, err
	}
	period := stringArg(args, "period")
	if period == "" {
		period = "7d"
	}
	days, ok := reportPeriods[period]
	if !ok {
		return nil, fmt.Errorf("period must be one of 7d, 30d, 90d")
	}

	if s.store == nil {
		return map[string]any{
			"summaryText": "Great progress this week! Keep watching and practicing.",
			"kpis":        map[string]any{"watchMin": 120, "sessions": 4, "wordsLearned": 15, "levelChange": "+1"},
			"chartData":   map[string]any{"series": []map[string]any{{"name": "Sessions", "data": []int{1, 2, 1, 0, 0, 0, 0}}}},
		}, nil
	}

	now := s.now()
	start := now.Add(-time.Duration(days) * 24 * time.Hour)
	all, err := s.sessions(ctx, childID, start)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	// One bucket per day for a week, per week otherwise.
	bucketDays := 1
	if days > 7 {
		bucketDays = 7
	}
	series := make([]int, days/bucketDays)
	watchSec := 0
	words := map[string]bool{}
	for _, sess := range all {
		watchSec += sess.duration
		for _, w := range sess.words {
			words[w] = true
		}
		idx := int(sess.at.Sub(start).Hours()/24) / bucketDays
		series[clamp(idx, 0, len(series)-1)]++
	}

	summary := fmt.Sprintf("%d sessions and %d new words in the last %d days. Keep watching and practicing!", len(all), len(words), days)
	if len(all) == 0 {
		summary = fmt.Sprintf("No sessions in the last %d days yet. Try a short video together!", days)
	}
	return map[string]any{
		"summaryText": summary,
		"kpis": map[string]any{
			"watchMin":     watchSec / 60,
			"sessions":     len(all),
			"wordsLearned": len(words),
			"streak":       streak(all, now),
		},
		"chartData": map[string]any{"series": []map[string]any{{"name": "Sessions", "data": series}}},
	}, nil
}

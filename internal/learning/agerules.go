package learning

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const defaultDurationMaxSec = 12 * 60

// AgeBucket holds the recommendation guardrails for one age range.
type AgeBucket struct {
	DurationMaxSec int      `json:"durationMaxSec"`
	Keywords       []string `json:"keywords"`
	Channels       []string `json:"channels"`
	Avoid          []string `json:"avoid"`
}

func (b AgeBucket) maxDuration() int {
	if b.DurationMaxSec > 0 {
		return b.DurationMaxSec
	}
	return defaultDurationMaxSec
}

// AgeRules maps an inclusive "lo-hi" age range to its bucket.
type AgeRules map[string]AgeBucket

// DefaultAgeRules returns the built-in buckets.
func DefaultAgeRules() AgeRules {
	return AgeRules{
		"0-3": {
			DurationMaxSec: 5 * 60,
			Keywords:       []string{"nursery rhymes", "lullaby", "hand play", "sensory music"},
			Channels:       []string{"Cocomelon", "Super Simple Songs", "Baby Einstein", "Hey Duggee", "Pocoyo", "Shaun the Sheep"},
			Avoid:          []string{"prank", "horror", "challenge"},
		},
		"4-6": {
			DurationMaxSec: 6 * 60,
			Keywords:       []string{"simple dialogue", "phonics", "everyday english", "kids story"},
			Channels:       []string{"Peppa Pig", "Bluey", "Ben & Holly's Little Kingdom", "Thomas & Friends", "Octonauts", "Alphablocks", "Numberblocks"},
			Avoid:          []string{"prank", "horror", "challenge"},
		},
		"7-9": {
			DurationMaxSec: 12 * 60,
			Keywords:       []string{"kids science", "story for kids", "basic social studies", "animals vocabulary"},
			Channels:       []string{"Wild Kratts", "The Magic School Bus", "Odd Squad", "Hilda", "Carmen Sandiego"},
			Avoid:          []string{"prank", "horror"},
		},
		"10-12": {
			DurationMaxSec: 18 * 60,
			Keywords:       []string{"science for kids", "history for kids", "english comprehension", "a2 english"},
			Channels:       []string{"Crash Course Kids", "TED-Ed"},
			Avoid:          []string{"prank", "horror"},
		},
		"13-15": {
			DurationMaxSec: 18 * 60,
			Keywords:       []string{"intermediate english for kids", "short stories b1", "news for kids"},
			Channels:       []string{"BBC Newsround"},
			Avoid:          []string{"prank", "horror"},
		},
	}
}

// ParseAgeRules decodes a JSON object of age buckets.
func ParseAgeRules(raw string) (AgeRules, error) {
	var rules AgeRules
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("parse age rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("parse age rules: no buckets")
	}
	return rules, nil
}

// Pick returns the bucket whose range contains age. Keys that are not
// "lo-hi" ranges are skipped. With no match the "6-8" bucket is used, which
// is empty unless an override defines it.
func (r AgeRules) Pick(age int) (string, AgeBucket) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lo, hi, ok := parseRange(k)
		if ok && lo <= age && age <= hi {
			return k, r[k]
		}
	}
	return "6-8", r["6-8"]
}

func parseRange(k string) (int, int, bool) {
	a, b, found := strings.Cut(k, "-")
	if !found {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(a))
	hi, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

// DurationOK reports whether a video of dur seconds fits the age bucket.
func (r AgeRules) DurationOK(age, dur int) bool {
	_, b := r.Pick(age)
	return dur <= b.maxDuration()
}

var characterAliases = map[string]string{
	"블루이":   "Bluey",
	"뽀로로":   "Pororo",
	"페파 피그": "Peppa Pig",
	"피카츄":   "Pikachu",
	"포켓몬":   "Pokemon",
	"핑크퐁":   "Pinkfong",
}

// NormCharacters appends the English alias after each known Korean name.
func NormCharacters(chars []string) []string {
	out := make([]string, 0, len(chars)*2)
	for _, c := range chars {
		out = append(out, c)
		if alias, ok := characterAliases[c]; ok {
			out = append(out, alias)
		}
	}
	return dedupe(out)
}

var levelKeywordTable = map[string][]string{
	"PREA1": {"phonics", "alphabet", "kids song", "nursery rhymes", "abc", "colors", "animals"},
	"A1":    {"basic", "easy english", "kids english", "simple sentences", "sight words"},
	"A2":    {"everyday english", "simple story", "short story", "english for kids a2"},
	"B1":    {"intermediate", "story for kids", "learn english b1"},
}

// LevelKeywords returns title keywords typical for a CEFR level. Unknown
// levels use A1.
func LevelKeywords(cefr string) []string {
	if kw, ok := levelKeywordTable[strings.ToUpper(strings.TrimSpace(cefr))]; ok {
		return kw
	}
	return levelKeywordTable["A1"]
}

// Score is the fixed weighted relevance of v for a child:
//
//	0.35 character + 0.25 level keyword + 0.15 duration (0.2 when too long)
//	+ 0.05 captions + 0.15 preferred channel + 0.10 age keyword − 0.25 avoid
func (r AgeRules) Score(v Video, chars []string, cefr string, age int) float64 {
	title := strings.ToLower(v.Title)
	channel := strings.ToLower(v.Channel)
	_, bucket := r.Pick(age)

	var char, level, ageKW, pref, capt, bad float64
	for _, c := range chars {
		c = strings.ToLower(c)
		if c != "" && (strings.Contains(title, c) || strings.Contains(channel, c)) {
			char = 1
			break
		}
	}
	if containsAny(title, LevelKeywords(cefr)) {
		level = 1
	}
	if containsAny(channel, bucket.Channels) {
		pref = 1
	}
	if containsAny(title, bucket.Keywords) {
		ageKW = 1
	}
	if containsAny(title, bucket.Avoid) {
		bad = 1
	}
	dur := 0.2
	if v.DurationSec <= bucket.maxDuration() {
		dur = 1
	}
	if v.HasCaptions {
		capt = 1
	}

	return 0.35*char + 0.25*level + 0.15*dur + 0.05*capt + 0.15*pref + 0.10*ageKW - 0.25*bad
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(n)
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

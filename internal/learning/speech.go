package learning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	speechOutputFormat = "audio-16khz-32kbitrate-mono-mp3"
	cheerText          = "Great job! You did it!"
	childVoice         = "en-US-AvaNeural"
	adultVoice         = "en-US-JennyNeural"
)

// PlayCheer synthesises a short cheer. audioUrl is null when speech is not
// configured or synthesis fails.
func (s *Service) PlayCheer(ctx context.Context, args map[string]any) (any, error) {
	voice := adultVoice
	if v := stringArg(args, "voice"); v == "" || v == "child" {
		voice = childVoice
	}
	audio, err := s.synthesize(ctx, voice, "0%", cheerText)
	if err != nil {
		slog.Warn("Cheer synthesis failed", "err", err)
	}
	if len(audio) == 0 {
		return map[string]any{"audioUrl": nil}, nil
	}
	return map[string]any{"audioUrl": dataURL(audio)}, nil
}

// SayWord pronounces one word slowly.
func (s *Service) SayWord(ctx context.Context, args map[string]any) (any, error) {
	word, err := requireString(args, "word")
	if err != nil {
		return nil, err
	}
	voice := stringArg(args, "voice")
	if voice == "" {
		voice = s.cfg.Speech.Voice
	}
	if voice == "" {
		voice = childVoice
	}
	empty := map[string]any{"audioUrl": nil, "audioB64": nil, "contentType": nil}

	audio, err := s.synthesize(ctx, voice, "-10.00%", word)
	if err != nil {
		slog.Warn("Word synthesis failed", "word", word, "err", err)
		return empty, nil
	}
	if len(audio) == 0 {
		return empty, nil
	}
	b64 := base64.StdEncoding.EncodeToString(audio)
	return map[string]any{
		"audioUrl":    "data:audio/mpeg;base64," + b64,
		"audioB64":    b64,
		"contentType": "audio/mpeg",
	}, nil
}

func dataURL(audio []byte) string {
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(audio)
}

// synthesize returns nil audio and no error when speech is not configured.
func (s *Service) synthesize(ctx context.Context, voice, rate, text string) ([]byte, error) {
	sc := s.cfg.Speech
	if sc.Region == "" || sc.APIKey == "" {
		return nil, nil
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, err
	}
	ssml := fmt.Sprintf(
		"<speak version='1.0' xml:lang='en-US'><voice name='%s'><prosody rate='%s'> %s </prosody></voice></speak>",
		voice, rate, escaped.String(),
	)

	endpoint := strings.ReplaceAll(s.endpoints.Speech, "{region}", sc.Region)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", sc.APIKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", speechOutputFormat)
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"moneytalk/internal/ai"
	"moneytalk/internal/core"
	applog "moneytalk/internal/log"
	"moneytalk/internal/storage"
)

// Transcriber is the AI surface the voice analyzer needs.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, userKey string) (string, error)
	AnalyzeTranscript(ctx context.Context, transcript, userKey string) (ai.AnalyzedTransaction, error)
}

// APIKeySource resolves the per-user AI API key override.
type APIKeySource interface {
	GetUserProfile(ctx context.Context, userID string) (core.UserProfile, error)
}

var ErrNoTranscript = errors.New("no transcript available")

// VoiceService turns a voice note into a structured transaction draft. The
// AI path is primary; on any AI failure the keyword fallback runs on
// whatever transcript is available.
type VoiceService struct {
	ai       Transcriber
	profiles APIKeySource
	fallback *ai.FallbackAnalyzer
}

func NewVoiceService(client Transcriber, profiles APIKeySource) *VoiceService {
	return &VoiceService{
		ai:       client,
		profiles: profiles,
		fallback: ai.NewFallbackAnalyzer(),
	}
}

// Analyze processes a base64 audio payload plus an optional client-side
// transcript. The returned bool reports whether the keyword fallback was
// used instead of the AI.
func (s *VoiceService) Analyze(ctx context.Context, userID, audioBase64, clientTranscript string) (ai.AnalyzedTransaction, bool, error) {
	audio, err := decodeAudio(audioBase64)
	if err != nil {
		return ai.AnalyzedTransaction{}, false, fmt.Errorf("decode audio: %w", err)
	}
	if len(audio) == 0 && strings.TrimSpace(clientTranscript) == "" {
		return ai.AnalyzedTransaction{}, false, ErrNoTranscript
	}

	userKey := s.userKey(ctx, userID)

	transcript := strings.TrimSpace(clientTranscript)
	if len(audio) > 0 {
		text, err := s.ai.Transcribe(ctx, audio, userKey)
		if err != nil {
			slog.WarnContext(ctx, "Transcription failed, using client transcript",
				"error", err, "user_id", userID, "has_client_transcript", transcript != "")
		} else {
			transcript = strings.TrimSpace(text)
		}
	}
	if transcript == "" {
		return ai.AnalyzedTransaction{}, false, ErrNoTranscript
	}

	analyzed, err := s.ai.AnalyzeTranscript(ctx, transcript, userKey)
	if err != nil {
		slog.WarnContext(ctx, "AI analysis failed, applying keyword fallback",
			applog.FieldOperation, applog.OpAnalyze, "error", err, "user_id", userID)
		return s.fallback.Analyze(transcript), true, nil
	}
	return analyzed, false, nil
}

func (s *VoiceService) userKey(ctx context.Context, userID string) string {
	if s.profiles == nil {
		return ""
	}
	profile, err := s.profiles.GetUserProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to load user profile", "error", err, "user_id", userID)
		}
		return ""
	}
	return profile.APIKey
}

// decodeAudio accepts plain base64 or a data URL as sent by browsers.
func decodeAudio(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if idx := strings.Index(s, ";base64,"); idx >= 0 {
		s = s[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"moneytalk/internal/core"
)

const (
	maxJSONBody  = 1 << 20  // 1 MiB for regular API payloads
	maxVoiceBody = 16 << 20 // voice notes carry base64 audio
)

// userID returns the caller's user scope taken from the X-User-ID header.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// decodeJSON strictly decodes the request body into dst, rejecting unknown
// fields and trailing garbage.
func decodeJSON(r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// amountField accepts a monetary amount as either a JSON number (dollars)
// or a decimal string ("12.34" or "12,34").
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal(b, &unquoted); err != nil {
			return err
		}
		s = unquoted
	}
	*a = amountField(s)
	return nil
}

// transactionRequest is the wire form of a transaction write.
type transactionRequest struct {
	Type            string      `json:"type"`
	Amount          amountField `json:"amount"`
	Category        string      `json:"category"`
	Description     string      `json:"description"`
	AudioTranscript string      `json:"audioTranscript,omitempty"`
}

func (req transactionRequest) toCore(userID string) (core.Transaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		UserID:          userID,
		Type:            core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Amount:          amount,
		Category:        sanitizeInput(req.Category),
		Description:     sanitizeInput(req.Description),
		AudioTranscript: sanitizeInput(req.AudioTranscript),
	}, nil
}

// parseAmount converts the wire amount to cents through the strict
// decimal parser.
func parseAmount(a amountField) (core.Money, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return core.Money{}, core.ErrInvalidAmount
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// budgetsRequest replaces the user's budget limits wholesale.
type budgetsRequest struct {
	Limits []budgetLimitRequest `json:"limits"`
}

type budgetLimitRequest struct {
	Category     string      `json:"category"`
	MonthlyLimit amountField `json:"monthlyLimit"`
}

func (req budgetsRequest) toCore() ([]core.BudgetLimit, error) {
	limits := make([]core.BudgetLimit, 0, len(req.Limits))
	for _, l := range req.Limits {
		amount, err := parseAmount(l.MonthlyLimit)
		if err != nil {
			return nil, fmt.Errorf("limit for %q: %w", l.Category, err)
		}
		limits = append(limits, core.BudgetLimit{
			Category:     sanitizeInput(l.Category),
			MonthlyLimit: amount,
		})
	}
	return limits, nil
}

// voiceRequest carries a base64 (or data URL) audio payload and an optional
// transcript produced by the browser's speech recognition.
type voiceRequest struct {
	Audio      string `json:"audio,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

type profileRequest struct {
	APIKey string `json:"apiKey"`
}

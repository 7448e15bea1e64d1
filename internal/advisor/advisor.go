package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/sirupsen/logrus"
)

const kilobyte = 1024

// Generator языковая модель, которая отвечает текстом на prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Advisor советует параметры печати. Если модель не настроена или ответила ошибкой, используются правила.
type Advisor struct {
	llm Generator
	l   *logrus.Entry
}

// New создает Advisor. llm может быть nil, тогда всегда используются правила.
func New(llm Generator, l *logrus.Logger) *Advisor {
	return &Advisor{
		llm: llm,
		l: l.WithFields(logrus.Fields{
			"component": "advisor",
		}),
	}
}

type SuggestArgs struct {
	FileName string `json:"fileName" binding:"required"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
}

// Suggest никогда не возвращает ошибку. Ошибки модели логируются и заменяются RuleSuggestion.
func (a *Advisor) Suggest(ctx context.Context, args SuggestArgs) domain.PrintSuggestion {
	fallback := RuleSuggestion(args.FileName, args.FileType)
	if a.llm == nil {
		return fallback
	}

	text, err := a.llm.Generate(ctx, buildPrompt(args))
	if err != nil {
		a.l.WithError(err).Warn("ai suggestion failed, using rules")
		return fallback
	}
	suggestion, err := parseSuggestion(text)
	if err != nil {
		a.l.WithError(err).Warn("unparsable ai suggestion, using rules")
		return fallback
	}
	return normalize(suggestion, fallback)
}

func buildPrompt(args SuggestArgs) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant for a print shop. ")
	b.WriteString("Analyze the file details and provide optimal print recommendations.\n\n")
	b.WriteString("File Details:\n")
	fmt.Fprintf(&b, "- File name: %s\n", args.FileName)
	fmt.Fprintf(&b, "- File type: %s\n", args.FileType)
	if args.FileSize > 0 {
		fmt.Fprintf(&b, "- File size: %d KB\n", (args.FileSize+kilobyte/2)/kilobyte) //nolint:mnd
	}
	b.WriteString(`
Provide a JSON response ONLY (no markdown, no code blocks) with print recommendations based on the file type and name:
{
  "colorMode": "mono" or "color",
  "sides": "single" or "duplex",
  "copies": number (default 1),
  "paperSize": "A4" or "A3",
  "binding": "none" or "staple" or "spiral",
  "quality": "standard" or "high",
  "recommendation": "brief explanation in one sentence",
  "estimatedPrice": number in rupees
}

Consider:
- Image files (PNG, JPG, etc.) should use color printing
- PDFs and documents typically benefit from duplex (double-sided)
- Presentations should be color with multiple slides per page
- Resumes/CVs need high-quality color printing
- Reports benefit from duplex with stapling
- Academic papers often need duplex printing`)
	return b.String()
}

// parseSuggestion разбирает ответ модели. Если весь ответ не JSON, ищет первый объект {...} в тексте.
func parseSuggestion(text string) (domain.PrintSuggestion, error) {
	var s domain.PrintSuggestion
	text = strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		return s, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return s, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
		return s, fmt.Errorf("parse suggestion: %w", err)
	}
	return s, nil
}

// normalize заменяет недопустимые значения ответа модели значениями из fallback.
func normalize(s, fallback domain.PrintSuggestion) domain.PrintSuggestion {
	pick := func(v string, allowed []string, def string) string {
		if slices.Contains(allowed, v) {
			return v
		}
		return def
	}
	s.ColorMode = pick(s.ColorMode, []string{"mono", "color"}, fallback.ColorMode)
	s.Sides = pick(s.Sides, []string{"single", "duplex"}, fallback.Sides)
	s.PaperSize = pick(strings.ToUpper(s.PaperSize), []string{"A4", "A3"}, fallback.PaperSize)
	s.Binding = pick(s.Binding, []string{"none", "staple", "spiral"}, fallback.Binding)
	s.Quality = pick(s.Quality, []string{"standard", "high"}, fallback.Quality)
	if s.Copies <= 0 {
		s.Copies = fallback.Copies
	}
	if s.EstimatedPrice.IsNegative() || s.EstimatedPrice.IsZero() {
		s.EstimatedPrice = fallback.EstimatedPrice
	}
	if strings.TrimSpace(s.Recommendation) == "" {
		s.Recommendation = fallback.Recommendation
	}
	s.Source = SourceAI
	return s
}

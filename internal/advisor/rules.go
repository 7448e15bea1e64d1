package advisor

import (
	"strings"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	SourceAI    = "ai"
	SourceRules = "rules"
)

// RuleSuggestion подбирает параметры печати по ключевым словам в имени и MIME типе файла.
// Правила применяются по очереди, более поздние переопределяют ранние.
func RuleSuggestion(fileName, fileType string) domain.PrintSuggestion {
	name := strings.ToLower(fileName)
	mime := strings.ToLower(fileType)

	s := domain.PrintSuggestion{
		ColorMode:      "mono",
		Sides:          "single",
		Copies:         1,
		PaperSize:      "A4",
		Binding:        "none",
		Quality:        "standard",
		Recommendation: "Standard print settings",
		EstimatedPrice: decimal.NewFromInt(20), //nolint:mnd
		Source:         SourceRules,
	}

	if containsAny(mime, "image", "png", "jpg", "jpeg") {
		s.ColorMode = "color"
		s.Quality = "high"
		s.EstimatedPrice = decimal.NewFromInt(30) //nolint:mnd
		s.Recommendation = "Image file detected - color printing recommended"
	}

	if strings.Contains(mime, "pdf") {
		s.Sides = "duplex"
		s.Recommendation = "PDF document - double-sided printing recommended"
	}

	if containsAny(mime, "word", "docx", "doc") {
		s.Sides = "duplex"
		s.Binding = "staple"
		s.Recommendation = "Document file - double-sided with staple recommended"
	}

	if containsAny(mime, "powerpoint", "ppt") || strings.Contains(name, "slide") {
		s.ColorMode = "color"
		s.Copies = 1
		s.Binding = "staple"
		s.EstimatedPrice = decimal.NewFromInt(40) //nolint:mnd
		s.Recommendation = "Presentation detected - color with multiple slides per page recommended"
	}

	if containsAny(name, "resume", "cv") {
		s.ColorMode = "color"
		s.Quality = "high"
		s.PaperSize = "A4"
		s.Binding = "none"
		s.EstimatedPrice = decimal.NewFromInt(25) //nolint:mnd
		s.Recommendation = "Resume/CV - high-quality color printing recommended"
	}

	if containsAny(name, "report", "lab") {
		s.Sides = "duplex"
		s.Binding = "staple"
		s.Recommendation = "Report detected - double-sided with staple recommended"
	}

	return s
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

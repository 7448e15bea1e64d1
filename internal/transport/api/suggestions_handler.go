package api

import (
	"context"
	"net/http"

	"github.com/fsdevblog/printahead/internal/advisor"
	"github.com/gin-gonic/gin"
)

type SuggestionsHandler struct {
	advisor Advisor
}

func NewSuggestionsHandler(a Advisor) *SuggestionsHandler {
	return &SuggestionsHandler{advisor: a}
}

type SuggestionResponse struct {
	ColorMode      string  `json:"colorMode"`
	Sides          string  `json:"sides"`
	Copies         int     `json:"copies"`
	PaperSize      string  `json:"paperSize"`
	Binding        string  `json:"binding"`
	Quality        string  `json:"quality"`
	Recommendation string  `json:"recommendation"`
	EstimatedPrice float64 `json:"estimatedPrice"`
	Source         string  `json:"source"`
}

// Create POST RouteGroup + SuggestionsRoute. Совет по параметрам печати файла. Ошибки модели не
// доходят до клиента, в худшем случае ответ по правилам.
func (h *SuggestionsHandler) Create(c *gin.Context) {
	var params advisor.SuggestArgs
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultSuggestTimeout)
	defer cancel()

	s := h.advisor.Suggest(reqCtx, params)
	respond(c, http.StatusOK, SuggestionResponse{
		ColorMode:      s.ColorMode,
		Sides:          s.Sides,
		Copies:         s.Copies,
		PaperSize:      s.PaperSize,
		Binding:        s.Binding,
		Quality:        s.Quality,
		Recommendation: s.Recommendation,
		EstimatedPrice: s.EstimatedPrice.InexactFloat64(),
		Source:         s.Source,
	})
}

package discovery

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plotweave/plotweave/internal/pathway"
	requestutil "github.com/plotweave/plotweave/internal/platform/request"
	"github.com/plotweave/plotweave/internal/platform/respond"
	"github.com/plotweave/plotweave/internal/taxonomy"
	"github.com/plotweave/plotweave/pkg/convert"
	"github.com/plotweave/plotweave/pkg/slice"
)

// defaultSuggestionLimit bounds the suggestion endpoint when the caller
// does not supply a limit.
const defaultSuggestionLimit = 10

// Handler exposes the pathway discovery endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a discovery [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the chi router for the discovery surface. Every route
// carries a fandomID segment because searches are always fandom-scoped.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/{fandomID}/search", handler.discover)
	router.Post("/{fandomID}/suggestions", handler.suggestions)
	return router
}

func (handler *Handler) discover(writer http.ResponseWriter, request *http.Request) {
	fandomID, err := requestutil.Int64Param(request, "fandomID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body SearchRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	response, err := handler.service.PerformSearch(request.Context(), fandomID, body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, response)
}

// suggestions accepts the partial pathway as a POST body because pathways
// are structured payloads, not query strings. The limit stays in the query
// so callers can tune it without touching the body.
func (handler *Handler) suggestions(writer http.ResponseWriter, request *http.Request) {
	fandomID, err := requestutil.Int64Param(request, "fandomID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var body struct {
		Pathway []pathway.Item `json:"pathway"`
	}
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	limit := convert.ToIntD(request.URL.Query().Get("limit"), defaultSuggestionLimit)
	tags, err := handler.service.GetCompletionSuggestions(request.Context(), fandomID, &pathway.Pathway{Items: body.Pathway}, limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, slice.Map(tags, func(tag *taxonomy.Tag) suggestionResponse {
		return suggestionResponse{Name: tag.Name, Category: tag.Category}
	}))
}

// suggestionResponse trims a tag to the fields the pathway builder needs.
type suggestionResponse struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

package hierarchy

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/plotweave/plotweave/internal/platform/request"
	"github.com/plotweave/plotweave/internal/platform/respond"
)

// Handler exposes the hierarchy dry-run endpoint for management tooling.
type Handler struct {
	service *Service
}

// NewHandler constructs a hierarchy [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the chi router for hierarchy checks.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/{fandomID}/check", handler.check)
	return router
}

type checkRequest struct {
	Refs          EntityRefs    `json:"refs"`
	Relationships Relationships `json:"relationships"`
}

func (handler *Handler) check(writer http.ResponseWriter, request *http.Request) {
	fandomID, err := requestutil.Int64Param(request, "fandomID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := checkRequest{}
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	report, err := handler.service.Check(request.Context(), fandomID, payload.Refs, payload.Relationships)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, report)
}

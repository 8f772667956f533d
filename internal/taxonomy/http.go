package taxonomy

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plotweave/plotweave/internal/platform/respond"
)

// Handler exposes the read-only taxonomy browse endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a taxonomy [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the chi router for the fandom browse surface.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.listFandoms)
	router.Get("/{slug}", handler.getFandom)
	router.Get("/{slug}/tags", handler.listTags)
	router.Get("/{slug}/plot-blocks", handler.listPlotBlocks)
	return router
}

func (handler *Handler) listFandoms(writer http.ResponseWriter, request *http.Request) {
	fandoms, err := handler.service.ListFandoms(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, fandoms)
}

func (handler *Handler) getFandom(writer http.ResponseWriter, request *http.Request) {
	fandom, err := handler.service.GetFandomBySlug(request.Context(), chi.URLParam(request, "slug"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, fandom)
}

func (handler *Handler) listTags(writer http.ResponseWriter, request *http.Request) {
	snapshot, err := handler.loadSnapshot(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, snapshot.Tags)
}

func (handler *Handler) listPlotBlocks(writer http.ResponseWriter, request *http.Request) {
	snapshot, err := handler.loadSnapshot(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, snapshot.PlotBlocks)
}

func (handler *Handler) loadSnapshot(request *http.Request) (*Snapshot, error) {
	fandom, err := handler.service.GetFandomBySlug(request.Context(), chi.URLParam(request, "slug"))
	if err != nil {
		return nil, err
	}
	return handler.service.LoadActiveSnapshot(request.Context(), fandom.ID)
}

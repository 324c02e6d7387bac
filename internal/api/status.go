package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"interview-copilot/internal/database"
	pkgapi "interview-copilot/pkg/api"
)

// StatusService serves the liveness root and the health-ping records. Status
// checks are an independent entity with no relationship to sessions.
type StatusService struct {
	store database.Store
}

func NewStatusService(store database.Store) *StatusService {
	return &StatusService{store: store}
}

func (s *StatusService) AddRoutes(r chi.Router) {
	r.With(RateLimit(100)).Get("/", RestHandler(s.Root))
	r.With(RateLimit(30)).Post("/status", RestHandler(s.CreateStatusCheck))
	r.With(RateLimit(60)).Get("/status", RestHandler(s.ListStatusChecks))
}

func (s *StatusService) Root(r *http.Request) (any, error) {
	return pkgapi.RootResponse{Message: "Interview Copilot API"}, nil
}

func (s *StatusService) CreateStatusCheck(r *http.Request) (any, error) {
	req, err := ParseRequest[pkgapi.StatusCheckCreateRequest](r)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ClientName) == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "client_name is required")
	}

	check, err := s.store.CreateStatusCheck(r.Context(), req.ClientName)
	if err != nil {
		slog.Error("error creating status check", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to save status check")
	}
	return check, nil
}

func (s *StatusService) ListStatusChecks(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[pkgapi.ListQuery](r)
	if err != nil {
		return nil, err
	}

	checks, err := s.store.ListStatusChecks(r.Context(), query.Limit)
	if err != nil {
		slog.Error("error listing status checks", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving status checks")
	}
	if checks == nil {
		checks = []database.StatusCheck{}
	}
	return checks, nil
}

package matches

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/insightball/backend/internal/storage"
	"github.com/insightball/backend/pkg/binder"
	"github.com/insightball/backend/pkg/entitlement"
	"github.com/insightball/backend/pkg/logger"
	"github.com/insightball/backend/pkg/tenant"
)

// Storage is the match persistence surface the module needs.
type Storage interface {
	Create(ctx context.Context, match *storage.Match) error
	Get(ctx context.Context, clubID, id uuid.UUID) (*storage.Match, error)
	List(ctx context.Context, clubID uuid.UUID) ([]*storage.Match, error)
	Delete(ctx context.Context, clubID, id uuid.UUID) error
}

// Service handles the match endpoints. It must be mounted behind the tenant
// middleware, which guarantees a club in the request context.
type Service struct {
	gate    *entitlement.Gate
	matches Storage
	log     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the matches service. Panics on nil dependencies.
func NewService(gate *entitlement.Gate, matches Storage, opts ...ServiceOption) *Service {
	if gate == nil {
		panic("matches: entitlement.Gate is required")
	}
	if matches == nil {
		panic("matches: Storage is required")
	}
	s := &Service{gate: gate, matches: matches, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle returns the module router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/", s.create)
	r.Get("/", s.list)
	r.Get("/quota", s.quota)
	r.Get("/{matchID}", s.get)
	r.Delete("/{matchID}", s.delete)

	return r
}

// CreateMatchRequest is the payload for match creation. Everything besides
// the title is descriptive; quota logic never reads it.
type CreateMatchRequest struct {
	Title       string     `json:"title"`
	Opponent    string     `json:"opponent,omitempty"`
	Competition string     `json:"competition,omitempty"`
	Location    string     `json:"location,omitempty"`
	IsHome      bool       `json:"is_home,omitempty"`
	PlayedAt    *time.Time `json:"played_at,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
}

// MatchResponse is the wire shape of a match.
type MatchResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Opponent    string     `json:"opponent,omitempty"`
	Competition string     `json:"competition,omitempty"`
	Location    string     `json:"location,omitempty"`
	IsHome      bool       `json:"is_home"`
	PlayedAt    *time.Time `json:"played_at,omitempty"`
	VideoURL    string     `json:"video_url,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toResponse(m *storage.Match) MatchResponse {
	return MatchResponse{
		ID:          m.ID,
		Title:       m.Title,
		Opponent:    m.Opponent,
		Competition: m.Competition,
		Location:    m.Location,
		IsHome:      m.IsHome,
		PlayedAt:    m.PlayedAt,
		VideoURL:    m.VideoURL,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
	}
}

func (s *Service) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	club := tenant.MustFromContext(ctx)

	subjectID, err := entitlement.SubjectIDFromContext(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateMatchRequest
	if err := binder.JSON()(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	// The gate decides before anything is written. When the decision burns
	// the trial slot the flag is already flipped at this point, so a failed
	// insert afterwards costs the slot; that tradeoff keeps the trial
	// single-use under every interleaving.
	decision, err := s.gate.TryConsume(ctx, subjectID)
	if err != nil {
		s.log.ErrorContext(ctx, "entitlement check failed",
			logger.Error(err), logger.SubjectID(subjectID))
		writeError(w, http.StatusInternalServerError, "entitlement check failed")
		return
	}
	if !decision.Allowed {
		writeDenial(w, decision)
		return
	}

	match := &storage.Match{
		ClubID:      club.ID,
		CreatedBy:   subjectID,
		Title:       req.Title,
		Opponent:    req.Opponent,
		Competition: req.Competition,
		Location:    req.Location,
		IsHome:      req.IsHome,
		PlayedAt:    req.PlayedAt,
		VideoURL:    req.VideoURL,
	}
	if err := s.matches.Create(ctx, match); err != nil {
		s.log.ErrorContext(ctx, "failed to create match",
			logger.Error(err), logger.ClubID(club.ID))
		writeError(w, http.StatusInternalServerError, "failed to create match")
		return
	}

	s.log.InfoContext(ctx, "match created",
		logger.MatchID(match.ID), logger.ClubID(club.ID))

	writeJSON(w, http.StatusCreated, toResponse(match))
}

func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	club := tenant.MustFromContext(ctx)

	list, err := s.matches.List(ctx, club.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to list matches",
			logger.Error(err), logger.ClubID(club.ID))
		writeError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}

	out := make([]MatchResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) quota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subjectID, err := entitlement.SubjectIDFromContext(ctx)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	status, err := s.gate.Status(ctx, subjectID)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to read quota status",
			logger.Error(err), logger.SubjectID(subjectID))
		writeError(w, http.StatusInternalServerError, "failed to read quota status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Service) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	club := tenant.MustFromContext(ctx)

	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	match, err := s.matches.Get(ctx, club.ID, matchID)
	if err != nil {
		if errors.Is(err, storage.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		s.log.ErrorContext(ctx, "failed to load match",
			logger.Error(err), logger.MatchID(matchID))
		writeError(w, http.StatusInternalServerError, "failed to load match")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(match))
}

func (s *Service) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	club := tenant.MustFromContext(ctx)

	matchID, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return
	}

	match, err := s.matches.Get(ctx, club.ID, matchID)
	if err != nil {
		if errors.Is(err, storage.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		s.log.ErrorContext(ctx, "failed to load match",
			logger.Error(err), logger.MatchID(matchID))
		writeError(w, http.StatusInternalServerError, "failed to load match")
		return
	}

	// An analysis job may hold the video while processing.
	if match.Status == storage.MatchProcessing {
		writeError(w, http.StatusConflict, "match is being processed")
		return
	}

	if err := s.matches.Delete(ctx, club.ID, matchID); err != nil {
		if errors.Is(err, storage.ErrMatchNotFound) {
			writeError(w, http.StatusNotFound, "match not found")
			return
		}
		s.log.ErrorContext(ctx, "failed to delete match",
			logger.Error(err), logger.MatchID(matchID))
		writeError(w, http.StatusInternalServerError, "failed to delete match")
		return
	}

	// Deletion does not refund the quota slot.
	w.WriteHeader(http.StatusNoContent)
}

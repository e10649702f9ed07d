package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appAuth "github.com/prakhar-shukla17/SlotSwapper/internal/application/auth"
	appSlot "github.com/prakhar-shukla17/SlotSwapper/internal/application/slot"
	appSwap "github.com/prakhar-shukla17/SlotSwapper/internal/application/swap"
	appUser "github.com/prakhar-shukla17/SlotSwapper/internal/application/user"
	domainSlot "github.com/prakhar-shukla17/SlotSwapper/internal/domain/slot"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/storage"
	domainSwap "github.com/prakhar-shukla17/SlotSwapper/internal/domain/swap"
	domainUser "github.com/prakhar-shukla17/SlotSwapper/internal/domain/user"
	"github.com/prakhar-shukla17/SlotSwapper/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authSvc             *appAuth.Service
	userSvc             *appUser.Service
	slotSvc             *appSlot.Service
	swapSvc             *appSwap.Service
	sseHub              *sse.Hub
	sessionCookieName   string
	sessionCookieSecure bool
}

func NewServer(
	authSvc *appAuth.Service,
	userSvc *appUser.Service,
	slotSvc *appSlot.Service,
	swapSvc *appSwap.Service,
	sseHub *sse.Hub,
	sessionCookieName string,
	sessionCookieSecure bool,
) *Server {
	return &Server{
		authSvc:             authSvc,
		userSvc:             userSvc,
		slotSvc:             slotSvc,
		swapSvc:             swapSvc,
		sseHub:              sseHub,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		// The SSE stream lives outside the request timeout; everything
		// else gets the usual deadline.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/events/sse", s.sseEndpoint)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Use(s.requireAuth)

			r.Route("/slots", func(r chi.Router) {
				r.Post("/", s.createSlot)
				r.Get("/", s.listSlots)
				r.Get("/{slotId}", s.getSlot)
				r.Patch("/{slotId}", s.updateSlot)
				r.Delete("/{slotId}", s.deleteSlot)
				r.Post("/{slotId}/status", s.setSlotStatus)
			})

			r.Route("/swaps", func(r chi.Router) {
				r.Get("/marketplace", s.marketplace)
				r.Post("/", s.proposeSwap)
				r.Get("/sent", s.listSentSwaps)
				r.Get("/received", s.listReceivedSwaps)
				r.Get("/{requestId}", s.getSwap)
				r.Post("/{requestId}/respond", s.respondSwap)
				r.Post("/{requestId}/cancel", s.cancelSwap)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondDomainError maps domain sentinels onto the HTTP error
// contract: validation 400, conflicts 409, missing (or hidden)
// entities 404. Already-resolved swap requests count as missing:
// only pending requests are visible to respond and cancel.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainSlot.ErrMissingTitle),
		errors.Is(err, domainSlot.ErrInvalidTimeFormat),
		errors.Is(err, domainSlot.ErrInvalidTimeRange),
		errors.Is(err, domainSlot.ErrInvalidStatus),
		errors.Is(err, domainSlot.ErrInvalidRecurrence),
		errors.Is(err, domainSwap.ErrSelfSwap),
		errors.Is(err, domainUser.ErrInvalidEmail),
		errors.Is(err, domainUser.ErrWeakPassword),
		errors.Is(err, domainUser.ErrMissingName):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, domainSlot.ErrOverlap),
		errors.Is(err, domainSlot.ErrStatusLocked),
		errors.Is(err, domainSlot.ErrReferencedByPending),
		errors.Is(err, domainSwap.ErrSlotUnavailable),
		errors.Is(err, domainSwap.ErrDuplicatePending),
		errors.Is(err, domainUser.ErrEmailTaken),
		errors.Is(err, storage.ErrRetryExhausted):
		respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domainSlot.ErrNotFound),
		errors.Is(err, domainSwap.ErrNotFound),
		errors.Is(err, domainSwap.ErrTerminal),
		errors.Is(err, domainUser.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, appAuth.ErrInvalidCredentials),
		errors.Is(err, appAuth.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

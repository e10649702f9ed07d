package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAuth "github.com/prakhar-shukla17/SlotSwapper/internal/application/auth"
	domainSlot "github.com/prakhar-shukla17/SlotSwapper/internal/domain/slot"
	"github.com/prakhar-shukla17/SlotSwapper/internal/domain/storage"
	domainSwap "github.com/prakhar-shukla17/SlotSwapper/internal/domain/swap"
	domainUser "github.com/prakhar-shukla17/SlotSwapper/internal/domain/user"
)

func TestRespondDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing title", domainSlot.ErrMissingTitle, http.StatusBadRequest, "INVALID_PARAM"},
		{"bad time format", domainSlot.ErrInvalidTimeFormat, http.StatusBadRequest, "INVALID_PARAM"},
		{"self swap", domainSwap.ErrSelfSwap, http.StatusBadRequest, "INVALID_PARAM"},
		{"overlap", domainSlot.ErrOverlap, http.StatusConflict, "CONFLICT"},
		{"status locked", domainSlot.ErrStatusLocked, http.StatusConflict, "CONFLICT"},
		{"slot unavailable", domainSwap.ErrSlotUnavailable, http.StatusConflict, "CONFLICT"},
		{"email taken", domainUser.ErrEmailTaken, http.StatusConflict, "CONFLICT"},
		{"retries exhausted", storage.ErrRetryExhausted, http.StatusConflict, "CONFLICT"},
		{"slot missing", domainSlot.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"request missing", domainSwap.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		// A request that has already been resolved is indistinguishable
		// from a missing one.
		{"request already resolved", domainSwap.ErrTerminal, http.StatusNotFound, "NOT_FOUND"},
		{"bad credentials", appAuth.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unauthenticated", appAuth.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondDomainError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			var body struct {
				Error   string `json:"error"`
				Message string `json:"message"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.wantCode, body.Error)
			assert.Equal(t, tc.err.Error(), body.Message)
		})
	}
}

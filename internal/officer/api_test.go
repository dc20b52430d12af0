package officer

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/types"
)

// The checks under test run before any repository call, so an empty
// repository is enough; a request that reaches it would panic the test.
func statusRequest(user *auth.User, body string) *httptest.ResponseRecorder {
	h := NewHandler(&Repository{}, nil)
	router := h.Routes()

	req := httptest.NewRequest(http.MethodPatch, "/"+types.NewID().String()+"/status", strings.NewReader(body))
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	citizen := &auth.User{ID: types.NewID(), UserType: "citizen"}

	rec := statusRequest(citizen, `{"status":"busy"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	rec = statusRequest(nil, `{"status":"busy"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rec.Code)
	}
}

func TestUpdateStatusRejectsManualOnCall(t *testing.T) {
	admin := &auth.User{ID: types.NewID(), UserType: "admin"}

	rec := statusRequest(admin, `{"status":"on_call"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for manual on_call, got %d", rec.Code)
	}
}

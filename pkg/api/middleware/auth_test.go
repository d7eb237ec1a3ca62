package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ridopark/jonbu-patterns/internal/auth"
	"github.com/ridopark/jonbu-patterns/internal/logger"
)

func passThrough() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := Subject(r.Context())
		if !ok {
			http.Error(w, "no subject in context", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(subject))
	})
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	issuer := auth.NewIssuer("secret", "jonbu-patterns", 15)
	handler := Auth(issuer, logger.New("test", "error"))(passThrough())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a missing bearer token, got %d", rec.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	issuer := auth.NewIssuer("secret", "jonbu-patterns", 15)
	handler := Auth(issuer, logger.New("test", "error"))(passThrough())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an invalid bearer token, got %d", rec.Code)
	}
}

func TestAuthAcceptsValidTokenAndSetsSubject(t *testing.T) {
	issuer := auth.NewIssuer("secret", "jonbu-patterns", 15)
	token, err := issuer.Issue("analyst-1")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	handler := Auth(issuer, logger.New("test", "error"))(passThrough())

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a valid token, got %d", rec.Code)
	}
	if rec.Body.String() != "analyst-1" {
		t.Errorf("expected the subject to be propagated through context, got %q", rec.Body.String())
	}
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifier_IssueAndParse(t *testing.T) {
	v := NewVerifier("test-secret", "go-church")
	token, err := v.Issue(Identity{UserID: 7, Name: "Ana", Role: "secretary", Status: StatusActive}, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := v.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.UserID != 7 || id.Role != "secretary" || id.Status != StatusActive || id.Name != "Ana" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if !id.Active() {
		t.Fatal("expected active identity")
	}
}

func TestVerifier_Expired(t *testing.T) {
	v := NewVerifier("test-secret", "")
	token, err := v.Issue(Identity{UserID: 1, Role: "member", Status: StatusActive}, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := v.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifier_WrongSecret(t *testing.T) {
	token, _ := NewVerifier("one", "").Issue(Identity{UserID: 1, Role: "member"}, time.Minute)
	if _, err := NewVerifier("two", "").Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestMiddleware_AttachesIdentity(t *testing.T) {
	v := NewVerifier("test-secret", "")
	token, _ := v.Issue(Identity{UserID: 3, Role: "admin", Status: StatusActive}, time.Minute)

	var got Identity
	var ok bool
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !ok || got.UserID != 3 || got.Role != "admin" {
		t.Fatalf("expected identity in context, got %+v (ok=%v)", got, ok)
	}
}

func TestRequireAuth(t *testing.T) {
	called := false
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized || called {
		t.Fatalf("expected 401 without calling next, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: 1}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if !called {
		t.Fatal("expected next to be called with identity")
	}
}

func TestMiddleware_IdentityResolver(t *testing.T) {
	v := NewVerifier("test-secret", "")
	token, _ := v.Issue(Identity{UserID: 3, Role: "admin", Status: StatusActive}, time.Minute)

	var lookupErr error
	v.SetIdentityResolver(func(ctx context.Context, claimed Identity) (Identity, error) {
		if lookupErr != nil {
			return claimed, lookupErr
		}
		return Identity{UserID: claimed.UserID, Role: "member", Status: StatusInactive}, nil
	})

	serve := func() (Identity, bool) {
		var got Identity
		var ok bool
		h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok = FromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		h.ServeHTTP(httptest.NewRecorder(), req)
		return got, ok
	}

	if got, ok := serve(); !ok || got.Role != "member" || got.Active() {
		t.Fatalf("expected the resolved identity, got %+v (ok=%v)", got, ok)
	}

	lookupErr = ErrRevoked
	if _, ok := serve(); ok {
		t.Fatal("revoked account must not get an identity")
	}

	lookupErr = errors.New("db down")
	if got, ok := serve(); !ok || got.Role != "admin" {
		t.Fatalf("lookup failure should keep token claims, got %+v (ok=%v)", got, ok)
	}
}

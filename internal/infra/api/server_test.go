//go:build !integration

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-login-relay/internal/domain"
	"telegram-login-relay/internal/usecase"
)

type fakeAuth struct {
	IssueFunc  func(ctx context.Context, tgID int64) (*usecase.IssuedCredential, error)
	RedeemFunc func(ctx context.Context, token string) (*usecase.Redemption, error)
}

func (f *fakeAuth) Issue(ctx context.Context, tgID int64) (*usecase.IssuedCredential, error) {
	return f.IssueFunc(ctx, tgID)
}

func (f *fakeAuth) Redeem(ctx context.Context, token string) (*usecase.Redemption, error) {
	return f.RedeemFunc(ctx, token)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(auth usecase.AuthUseCase, db Pinger, key string) http.Handler {
	l := zerolog.New(io.Discard)
	return NewServer(auth, db, key, time.Second, &l).Routes()
}

func do(h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIssue_Success(t *testing.T) {
	exp := time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
	var gotID int64
	auth := &fakeAuth{IssueFunc: func(_ context.Context, tgID int64) (*usecase.IssuedCredential, error) {
		gotID = tgID
		return &usecase.IssuedCredential{Token: "tok", RedirectURL: "https://dash.test/auth/login?token=tok", ExpiresAt: exp}, nil
	}}
	h := newTestServer(auth, nil, "svc-key")

	rr := do(h, http.MethodPost, "/api/v1/auth/token", `{"telegram_id":42}`, map[string]string{"Authorization": "Bearer svc-key"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if gotID != 42 {
		t.Fatalf("tgID = %d", gotID)
	}
	var resp issueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Token != "tok" || resp.AuthURL == "" || !resp.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestIssue_RequiresServiceKey(t *testing.T) {
	auth := &fakeAuth{IssueFunc: func(context.Context, int64) (*usecase.IssuedCredential, error) {
		t.Fatal("Issue must not be called")
		return nil, nil
	}}
	h := newTestServer(auth, nil, "svc-key")

	for _, hdr := range []map[string]string{
		nil,
		{"Authorization": "Bearer wrong"},
		{"Authorization": "svc-key"},
	} {
		rr := do(h, http.MethodPost, "/api/v1/auth/token", `{"telegram_id":42}`, hdr)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %v: status = %d", hdr, rr.Code)
		}
	}
}

func TestIssue_DisabledWithoutKey(t *testing.T) {
	h := newTestServer(&fakeAuth{}, nil, "")
	rr := do(h, http.MethodPost, "/api/v1/auth/token", `{"telegram_id":42}`, nil)
	if rr.Code == http.StatusOK {
		t.Fatal("issue endpoint should not be mounted")
	}
}

func TestIssue_BadRequestAndFailure(t *testing.T) {
	auth := &fakeAuth{IssueFunc: func(context.Context, int64) (*usecase.IssuedCredential, error) {
		return nil, fmt.Errorf("%w: db down", domain.ErrIssuanceFailed)
	}}
	h := newTestServer(auth, nil, "k")
	bearer := map[string]string{"Authorization": "Bearer k"}

	if rr := do(h, http.MethodPost, "/api/v1/auth/token", `{"telegram_id":0}`, bearer); rr.Code != http.StatusBadRequest {
		t.Fatalf("zero id: status = %d", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/api/v1/auth/token", `not json`, bearer); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d", rr.Code)
	}
	rr := do(h, http.MethodPost, "/api/v1/auth/token", `{"telegram_id":7}`, bearer)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("failure: status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "db down") {
		t.Fatal("internal error detail leaked")
	}
}

func TestVerify_Success(t *testing.T) {
	auth := &fakeAuth{RedeemFunc: func(_ context.Context, token string) (*usecase.Redemption, error) {
		if token != "abc" {
			t.Fatalf("token = %q", token)
		}
		return &usecase.Redemption{TelegramID: 42, AccountID: "acc-1", AccountCreated: true, SessionToken: "jwt"}, nil
	}}
	h := newTestServer(auth, nil, "")

	rr := do(h, http.MethodPost, "/api/v1/auth/verify", `{"token":"abc"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp verifyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TelegramID != 42 || resp.AccountID != "acc-1" || !resp.AccountCreated || resp.SessionToken != "jwt" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestVerify_Rejections(t *testing.T) {
	cases := map[string]error{
		"expired":      domain.ErrTokenExpired,
		"already_used": domain.ErrTokenAlreadyUsed,
		"not_found":    fmt.Errorf("wrap: %w", domain.ErrTokenNotFound),
	}
	for want, rerr := range cases {
		auth := &fakeAuth{RedeemFunc: func(context.Context, string) (*usecase.Redemption, error) {
			return nil, rerr
		}}
		rr := do(newTestServer(auth, nil, ""), http.MethodPost, "/api/v1/auth/verify", `{"token":"x"}`, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", want, rr.Code)
		}
		var body errorBody
		_ = json.Unmarshal(rr.Body.Bytes(), &body)
		if body.Error != want {
			t.Fatalf("error = %q, want %q", body.Error, want)
		}
	}
}

func TestVerify_BadRequestAndInternal(t *testing.T) {
	auth := &fakeAuth{RedeemFunc: func(context.Context, string) (*usecase.Redemption, error) {
		return nil, errors.New("boom")
	}}
	h := newTestServer(auth, nil, "")
	if rr := do(h, http.MethodPost, "/api/v1/auth/verify", `{}`, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("empty token: status = %d", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/api/v1/auth/verify", `{"token":"x"}`, nil); rr.Code != http.StatusInternalServerError {
		t.Fatalf("internal: status = %d", rr.Code)
	}
}

func TestVerify_PanicRecovered(t *testing.T) {
	auth := &fakeAuth{RedeemFunc: func(context.Context, string) (*usecase.Redemption, error) {
		panic("kaboom")
	}}
	rr := do(newTestServer(auth, nil, ""), http.MethodPost, "/api/v1/auth/verify", `{"token":"x"}`, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	if rr := do(newTestServer(&fakeAuth{}, fakePinger{}, ""), http.MethodGet, "/health", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthy: status = %d", rr.Code)
	}
	if rr := do(newTestServer(&fakeAuth{}, fakePinger{err: errors.New("down")}, ""), http.MethodGet, "/health", "", nil); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: status = %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(newTestServer(&fakeAuth{}, nil, ""), http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	lanterrors "github.com/lantern-irc/lantern/internal/errors"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	return NewClient(cfg)
}

func TestLogin(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Auth-Formtoken"); got != "tok123" {
			t.Errorf("formtoken = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("email") != "a@b.c" {
			t.Errorf("email = %q", r.PostForm.Get("email"))
		}
		w.Write([]byte(`{"success":true,"session":"s1","uid":7,"websocket_host":"ws.example","websocket_path":"/ws"}`))
	})

	res, err := c.Login(context.Background(), "a@b.c", "hunter2", "tok123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if res.Session != "s1" || res.UID != 7 || res.WSHost != "ws.example" {
		t.Errorf("Login() = %+v", res)
	}
	if c.Session() != "s1" {
		t.Errorf("Session() = %q after login", c.Session())
	}
}

func TestLoginFailureMessage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"bad_pass"}`))
	})

	_, err := c.Login(context.Background(), "a@b.c", "nope", "tok")
	var le *lanterrors.Error
	if !errors.As(err, &le) {
		t.Fatalf("Login() error = %v, want *Error", err)
	}
	if le.Code != lanterrors.CodeLoginFailed || le.Detail != "bad_pass" {
		t.Errorf("error = %+v", le)
	}
}

func TestSessionExpired(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.SetSession("stale")

	err := c.ResendVerifyEmail(context.Background())
	var le *lanterrors.Error
	if !errors.As(err, &le) || le.Code != lanterrors.CodeSessionExpired {
		t.Errorf("error = %v, want session expired", err)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.PostForm.Get("session") != "s1" {
			t.Errorf("session form value = %q", r.PostForm.Get("session"))
		}
		w.Write([]byte(`{"success":true}`))
	})
	c.SetSession("s1")

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if c.Session() != "" {
		t.Error("session not cleared after logout")
	}
}

func TestSessionCookieSent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "s1" {
			t.Errorf("session cookie = %v, %v", cookie, err)
		}
		w.Write([]byte(`{"token":"ft"}`))
	})
	c.SetSession("s1")

	tok, err := c.RequestAuthToken(context.Background())
	if err != nil || tok.Token != "ft" {
		t.Errorf("RequestAuthToken() = %+v, %v", tok, err)
	}
}

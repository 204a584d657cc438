package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func fakeAuthClient(rt roundTripFunc) *Client {
	c := NewClient(Config{URL: "https://auth.example.test", AnonKey: "anon", TimeoutMs: 5000})
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func userResponse(status int, user User) *http.Response {
	blob, _ := json.Marshal(user)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func guardedRouter(client *Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/app", Guard(client, "/login"), func(c *gin.Context) {
		user, _ := UserFrom(c)
		c.JSON(http.StatusOK, gin.H{"user": user.Email})
	})
	return r
}

func TestGuardAdmitsValidSession(t *testing.T) {
	client := fakeAuthClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/auth/v1/user" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Fatalf("authorization=%q", got)
		}
		return userResponse(http.StatusOK, User{ID: "u1", Email: "ventas@tinnova.pe"}), nil
	})

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-123"})
	w := httptest.NewRecorder()
	guardedRouter(client).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "ventas@tinnova.pe") {
		t.Fatalf("guard did not inject the user: %s", w.Body.String())
	}
}

func TestGuardRedirectsBrowserWithoutSession(t *testing.T) {
	client := fakeAuthClient(func(r *http.Request) (*http.Response, error) {
		t.Fatal("no provider call expected without a cookie")
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/app?x=1", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	guardedRouter(client).ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?redirect=") || !strings.Contains(loc, "%2Fapp") {
		t.Fatalf("location=%q", loc)
	}
}

func TestGuardFailsClosedOnProviderError(t *testing.T) {
	client := fakeAuthClient(func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Body:       io.NopCloser(strings.NewReader("down")),
			Header:     make(http.Header),
		}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok-123"})
	w := httptest.NewRecorder()
	guardedRouter(client).ServeHTTP(w, req)

	// a transient provider error reads the same as no session
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGuardRejectsRevokedToken(t *testing.T) {
	client := fakeAuthClient(func(r *http.Request) (*http.Response, error) {
		return userResponse(http.StatusUnauthorized, User{}), nil
	})

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "revoked"})
	w := httptest.NewRecorder()
	guardedRouter(client).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestSignInWithPassword(t *testing.T) {
	client := fakeAuthClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "password" {
			t.Fatalf("unexpected request %s", r.URL.String())
		}
		if got := r.Header.Get("apikey"); got != "anon" {
			t.Fatalf("apikey=%q", got)
		}
		blob, _ := json.Marshal(Session{AccessToken: "tok-123", User: User{ID: "u1", Email: "ventas@tinnova.pe"}})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(string(blob))),
			Header:     make(http.Header),
		}, nil
	})

	session, err := client.SignInWithPassword(context.Background(), "ventas@tinnova.pe", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if session.AccessToken != "tok-123" {
		t.Fatalf("token=%q", session.AccessToken)
	}
}

func TestSignInFailureIsGeneric(t *testing.T) {
	cases := []struct {
		name string
		rt   roundTripFunc
	}{
		{
			name: "invalid credentials",
			rt: func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusBadRequest,
					Body:       io.NopCloser(strings.NewReader(`{"error":"invalid_grant"}`)),
					Header:     make(http.Header),
				}, nil
			},
		},
		{
			name: "no session returned",
			rt: func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`{}`)),
					Header:     make(http.Header),
				}, nil
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := fakeAuthClient(tc.rt)
			_, err := client.SignInWithPassword(context.Background(), "a@b.c", "x")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), MsgInvalidCredentials) {
				t.Fatalf("message not generic: %v", err)
			}
		})
	}
}

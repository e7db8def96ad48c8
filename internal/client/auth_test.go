package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard-go/internal/model"
)

func TestAuthClient_Login_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var creds model.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ada@example.com", creds.Email)
		assert.Equal(t, "s3cret", creds.Password)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"tok-1","user":{"id":7,"name":"Ada","email":"ada@example.com"}}`))
	}))
	defer srv.Close()

	c := NewAuthClient(testConfig(srv.URL), discardLogger())
	resp, err := c.Login(context.Background(), model.Credentials{Email: "ada@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, model.FlexID("7"), resp.User.ID)
	assert.Equal(t, "Ada", resp.User.Name)
}

func TestAuthClient_Login_Enveloped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"token":"tok-2","user":{"id":"u2","name":"Bo","email":"bo@example.com"}}}`))
	}))
	defer srv.Close()

	c := NewAuthClient(testConfig(srv.URL), discardLogger())
	resp, err := c.Login(context.Background(), model.Credentials{Email: "bo@example.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "tok-2", resp.Token)
	assert.Equal(t, model.FlexID("u2"), resp.User.ID)
}

func TestAuthClient_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind LoginErrorKind
		wantMsg  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid email or password"}`, LoginInvalidCredentials, "Invalid email or password"},
		{"bad request", http.StatusBadRequest, `{"error":"email is required"}`, LoginInvalidCredentials, "email is required"},
		{"server error", http.StatusInternalServerError, `boom`, LoginServerError, "boom"},
		{"route not found", http.StatusNotFound, `{"message":"Cannot POST /api/auth/login"}`, LoginServerError, "Cannot POST /api/auth/login"},
		{"bad gateway", http.StatusBadGateway, ``, LoginServerError, ""},
		{"missing token", http.StatusOK, `{"user":{"id":1,"name":"A","email":"a@b"}}`, LoginBadResponse, ""},
		{"not json", http.StatusOK, `<html></html>`, LoginBadResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewAuthClient(testConfig(srv.URL), discardLogger())
			_, err := c.Login(context.Background(), model.Credentials{Email: "a@b", Password: "x"})
			require.Error(t, err)
			assert.True(t, IsLoginKind(err, tt.wantKind), "kind of %v, want %s", err, tt.wantKind)

			var le *LoginError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.status, le.Status)
			assert.Equal(t, tt.wantMsg, le.Message)
		})
	}
}

func TestAuthClient_Register_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/register", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var reg model.Registration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, model.Registration{Name: "Grace", Email: "grace@example.com", Password: "hopper"}, reg)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"User registered","token":"tok-9","user":{"id":9,"name":"Grace","email":"grace@example.com"}}`))
	}))
	defer srv.Close()

	c := NewAuthClient(testConfig(srv.URL), discardLogger())
	resp, err := c.Register(context.Background(), model.Registration{Name: "Grace", Email: "grace@example.com", Password: "hopper"})
	require.NoError(t, err)
	assert.Equal(t, "User registered", resp.Message)
	assert.Equal(t, "tok-9", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, model.FlexID("9"), resp.User.ID)
}

func TestAuthClient_Register_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind LoginErrorKind
	}{
		{"email taken", http.StatusConflict, `{"message":"Email already registered"}`, LoginInvalidCredentials},
		{"validation", http.StatusBadRequest, `{"error":"password too short"}`, LoginInvalidCredentials},
		{"route missing", http.StatusNotFound, ``, LoginServerError},
		{"missing user", http.StatusCreated, `{"message":"ok"}`, LoginBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewAuthClient(testConfig(srv.URL), discardLogger())
			_, err := c.Register(context.Background(), model.Registration{Name: "A", Email: "a@b", Password: "x"})
			require.Error(t, err)
			assert.True(t, IsLoginKind(err, tt.wantKind), "kind of %v, want %s", err, tt.wantKind)
			assert.Contains(t, err.Error(), "register failed")
		})
	}
}

func TestAuthClient_Login_Unreachable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.API.TimeoutSeconds = 1
	c := NewAuthClient(cfg, discardLogger())

	_, err := c.Login(context.Background(), model.Credentials{Email: "a@b", Password: "x"})
	require.Error(t, err)
	assert.True(t, IsLoginKind(err, LoginUnreachable))
	assert.Contains(t, err.Error(), "unreachable")
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://h/api/auth/login", joinURL("http://h/", "/api/auth", "login"))
	assert.Equal(t, "http://h/api/auth/login", joinURL("http://h", "api/auth/", "/login"))
	assert.Equal(t, "http://h", joinURL("http://h", ""))
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTClient(Config{BaseURL: srv.URL, AnonKey: "anon-key"})
}

func TestReady_HealthyOnceThenCached(t *testing.T) {
	var probes int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/health", r.URL.Path)
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		probes++
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.Ready(context.Background()))
	require.NoError(t, c.Ready(context.Background()))
	require.Equal(t, 1, probes)
}

func TestReady_ServerErrorIsNotReady(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	require.ErrorIs(t, c.Ready(context.Background()), ErrNotReady)
}

func TestSignInWithPassword_CachesSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "user@example.com", body["email"])
		require.Equal(t, "hunter2AAAA1111!", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    3600,
			"user":          map[string]string{"id": "uid-1", "email": "user@example.com"},
		})
	}))

	s, err := c.SignInWithPassword(context.Background(), "user@example.com", []byte("hunter2AAAA1111!"))
	require.NoError(t, err)
	require.Equal(t, "uid-1", s.User.ID)

	cached, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "at", cached.AccessToken)
}

func TestSignIn_BadCredentialsClassified(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid login credentials"})
	}))

	_, err := c.SignInWithPassword(context.Background(), "user@example.com", []byte("nope"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid login credentials")
}

func TestGetSession_RecoversPrincipalFromTokenClaims(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "uid-7",
		"email": "claims@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("whatever"))
	require.NoError(t, err)

	c := NewRESTClient(Config{BaseURL: "http://unused", AnonKey: "k"})
	c.setSession(&Session{AccessToken: signed, ExpiresAt: time.Now().Add(time.Hour)})

	s, err := c.GetSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "uid-7", s.User.ID)
	require.Equal(t, "claims@example.com", s.User.Email)
}

func TestGetSession_ExpiredIsUnauthenticated(t *testing.T) {
	c := NewRESTClient(Config{BaseURL: "http://unused", AnonKey: "k"})
	c.setSession(&Session{AccessToken: "at", ExpiresAt: time.Now().Add(-time.Minute)})

	_, err := c.GetSession(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSignOut_LocalScopeDropsCachedSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/logout", r.URL.Path)
		require.Equal(t, string(SignOutLocal), r.URL.Query().Get("scope"))
		w.WriteHeader(http.StatusNoContent)
	}))
	c.setSession(&Session{AccessToken: "at", User: &Principal{ID: "uid-1"}})

	require.NoError(t, c.SignOut(context.Background(), SignOutLocal))
	_, err := c.GetSession(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestTableSelect_BuildsPostgRESTQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/candidate_skills", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "id,skill_name", q.Get("select"))
		require.Equal(t, "eq.uid-1", q.Get("user_id"))
		require.Equal(t, "created_at.asc", q.Get("order"))
		require.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode([]Row{{"id": "a", "skill_name": "Go"}})
	}))

	rows, err := c.Table("candidate_skills").Select(context.Background(), Query{
		Columns:   []string{"id", "skill_name"},
		OrderBy:   "created_at",
		Ascending: true,
	}.Eq("user_id", "uid-1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Go", rows[0]["skill_name"])
}

func TestTableSelectSingle_EmptyIsNilNotError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Row{})
	}))

	row, err := c.Table("candidate_profiles").SelectSingle(context.Background(), Query{})
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestTableInsert_MinimalReturnPreference(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "return=minimal", r.Header.Get("Prefer"))

		var rows []Row
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 2)
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.Table("candidate_skills").Insert(context.Background(), []Row{
		{"skill_name": "Go"}, {"skill_name": "SQL"},
	})
	require.NoError(t, err)
}

func TestTableUpsert_ConflictKeyAndMerge(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "user_id", r.URL.Query().Get("on_conflict"))
		require.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))
		_ = json.NewEncoder(w).Encode([]Row{{"id": "x", "user_id": "uid-1"}})
	}))

	out, err := c.Table("candidate_profiles").Upsert(context.Background(),
		[]Row{{"user_id": "uid-1", "headline": "Engineer"}}, "user_id")
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestTableWrite_PermissionDeniedClassified(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"message": "new row violates row-level security policy",
		})
	}))

	err := c.Table("candidate_skills").Insert(context.Background(), []Row{{"skill_name": "Go"}})
	require.ErrorIs(t, err, ErrPermissionDenied)
}

func TestTableDelete_SendsFilters(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "eq.rec-1", r.URL.Query().Get("id"))
		require.Equal(t, "eq.uid-1", r.URL.Query().Get("user_id"))
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.Table("candidate_skills").Delete(context.Background(),
		Query{}.Eq("id", "rec-1").Eq("user_id", "uid-1"))
	require.NoError(t, err)
}

func TestRequestFailureIsUnavailable(t *testing.T) {
	c := NewRESTClient(Config{BaseURL: "http://127.0.0.1:1", AnonKey: "k", HTTPTimeout: 200 * time.Millisecond})
	_, err := c.Table("places").Select(context.Background(), Query{})
	require.ErrorIs(t, err, ErrUnavailable)
}

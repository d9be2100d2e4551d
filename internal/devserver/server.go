package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talenorix/candidate-portal/internal/devserver/config"
	"github.com/talenorix/candidate-portal/internal/logging"
)

// Server exposes the auth and REST surfaces over one Store.
type Server struct {
	store    Store
	secret   []byte
	tokenTTL time.Duration
	log      logging.Logger
}

// NewServer wires the handler set. The logger may not be nil.
func NewServer(store Store, cfg *config.Config, log logging.Logger) *Server {
	return &Server{
		store:    store,
		secret:   []byte(cfg.SecretKey),
		tokenTTL: cfg.AccessTokenValidityDuration,
		log:      log,
	}
}

// NewDefaultLogger builds the slog-backed logger the dev backend uses.
func NewDefaultLogger() logging.Logger {
	return logging.NewSlogLogger(slog.Default())
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/v1/health", s.handleHealth)
	mux.HandleFunc("POST /auth/v1/signup", s.handleSignUp)
	mux.HandleFunc("POST /auth/v1/token", s.handleToken)
	mux.HandleFunc("GET /auth/v1/user", s.handleUser)
	mux.HandleFunc("POST /auth/v1/logout", s.handleLogout)
	mux.HandleFunc("/rest/v1/", s.handleRest)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info(ctx, "dev backend listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type credentialsBody struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Data     map[string]string `json:"data"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := HashPassword(body.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash error")
		return
	}

	user, err := s.store.CreateUser(r.Context(), body.Email, hash, body.Data)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			writeError(w, http.StatusUnprocessableEntity, "user already registered")
			return
		}
		s.log.Error(r.Context(), "signup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	s.writeSession(w, r, user)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		writeError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.UserByEmail(r.Context(), body.Email)
	if err != nil || !CheckPassword(user.PasswordHash, body.Password) {
		writeError(w, http.StatusBadRequest, "invalid login credentials")
		return
	}

	s.writeSession(w, r, user)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, user *User) {
	token, err := GenerateToken(user.ID, user.Email, s.secret, s.tokenTTL)
	if err != nil {
		s.log.Error(r.Context(), "token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "token error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  token,
		"refresh_token": "",
		"expires_in":    int64(s.tokenTTL.Seconds()),
		"token_type":    "bearer",
		"user":          map[string]string{"id": user.ID, "email": user.Email},
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID, email, ok := s.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid JWT")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": userID, "email": email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless here; acknowledging is enough for the client's
	// best-effort sign-out flow.
	w.WriteHeader(http.StatusNoContent)
}

// authenticate resolves the bearer token to a user, if any.
func (s *Server) authenticate(r *http.Request) (userID, email string, ok bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", "", false
	}
	userID, email, err := ParseToken(strings.TrimPrefix(h, "Bearer "), s.secret)
	if err != nil {
		return "", "", false
	}
	return userID, email, true
}

// handleRest serves /rest/v1/<table> with the query conventions the client
// emits: select=, <col>=eq.<v>, order=<col>.<dir>, on_conflict=, and the
// Prefer header on writes. Row policy emulation: reference tables are
// publicly readable, everything else requires a token and is forced to the
// caller's own rows.
func (s *Server) handleRest(w http.ResponseWriter, r *http.Request) {
	table := strings.Trim(strings.TrimPrefix(r.URL.Path, "/rest/v1/"), "/")
	schema, ok := schemaFor(table)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("relation %q does not exist", table))
		return
	}

	userID, _, authed := s.authenticate(r)

	q := r.URL.Query()
	var columns []string
	if sel := q.Get("select"); sel != "" && sel != "*" {
		columns = strings.Split(sel, ",")
	}
	filters := []Filter{}
	for key, vals := range q {
		switch key {
		case "select", "order", "on_conflict":
			continue
		}
		if len(vals) == 0 || !strings.HasPrefix(vals[0], "eq.") {
			continue
		}
		filters = append(filters, Filter{Column: key, Value: strings.TrimPrefix(vals[0], "eq.")})
	}
	orderBy, asc := parseOrder(q.Get("order"))

	if r.Method == http.MethodGet && schema.PublicRead {
		s.serveSelect(w, r, table, columns, filters, orderBy, asc)
		return
	}

	if !authed {
		writeError(w, http.StatusUnauthorized, "permission denied: missing or invalid JWT")
		return
	}

	// Force owner scoping regardless of what the request asked for.
	filters = scopeToOwner(filters, schema.OwnerColumn, userID)

	switch r.Method {
	case http.MethodGet:
		s.serveSelect(w, r, table, columns, filters, orderBy, asc)

	case http.MethodPost:
		var rows []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		for _, row := range rows {
			if owner, ok := row[schema.OwnerColumn].(string); !ok || owner != userID {
				writeError(w, http.StatusForbidden,
					fmt.Sprintf("new row violates row-level security policy for table %q", table))
				return
			}
		}

		var out []map[string]any
		var err error
		if conflictKey := q.Get("on_conflict"); conflictKey != "" {
			out, err = s.store.Upsert(r.Context(), table, rows, conflictKey)
		} else {
			out, err = s.store.Insert(r.Context(), table, rows)
		}
		if err != nil {
			s.log.Error(r.Context(), "write failed", "table", table, "error", err)
			writeError(w, http.StatusInternalServerError, "write failed")
			return
		}
		if strings.Contains(r.Header.Get("Prefer"), "return=representation") {
			writeJSON(w, http.StatusCreated, out)
			return
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		if _, err := s.store.Delete(r.Context(), table, filters); err != nil {
			s.log.Error(r.Context(), "delete failed", "table", table, "error", err)
			writeError(w, http.StatusInternalServerError, "delete failed")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) serveSelect(w http.ResponseWriter, r *http.Request, table string, columns []string, filters []Filter, orderBy string, asc bool) {
	rows, err := s.store.Select(r.Context(), table, columns, filters, orderBy, asc)
	if err != nil {
		s.log.Error(r.Context(), "select failed", "table", table, "error", err)
		writeError(w, http.StatusInternalServerError, "select failed")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// scopeToOwner replaces any caller-supplied owner filter with the
// authenticated user id.
func scopeToOwner(filters []Filter, ownerColumn, userID string) []Filter {
	out := filters[:0]
	for _, f := range filters {
		if f.Column != ownerColumn {
			out = append(out, f)
		}
	}
	return append(out, Filter{Column: ownerColumn, Value: userID})
}

func parseOrder(raw string) (column string, asc bool) {
	if raw == "" {
		return "", false
	}
	parts := strings.SplitN(raw, ".", 2)
	column = parts[0]
	asc = len(parts) < 2 || parts[1] != "desc"
	return column, asc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

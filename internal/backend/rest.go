package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds the settings needed to construct a RESTClient.
type Config struct {
	// BaseURL is the root of the hosted backend, e.g. https://proj.example.co.
	BaseURL string
	// AnonKey is the public API key sent with every request.
	AnonKey string
	// HTTPTimeout bounds individual requests.
	HTTPTimeout time.Duration

	Storage StorageConfig
}

// RESTClient implements Client over the backend's HTTP surface:
// password auth under /auth/v1 and table access under /rest/v1.
// It is safe for concurrent use.
type RESTClient struct {
	baseURL string
	anonKey string
	httpc   *http.Client
	storage StorageConfig

	mu      sync.Mutex
	session *Session
	ready   bool
}

// NewRESTClient constructs the handle. The handle is not ready until Ready
// has succeeded once; callers go through the session gate for that.
func NewRESTClient(cfg Config) *RESTClient {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		anonKey: cfg.AnonKey,
		httpc:   &http.Client{Timeout: timeout},
		storage: cfg.Storage,
	}
}

// Ready probes the auth health endpoint once and caches success.
func (c *RESTClient) Ready(ctx context.Context) error {
	c.mu.Lock()
	if c.ready {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: health status %d", ErrNotReady, resp.StatusCode)
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	return nil
}

func (c *RESTClient) Close() error { return nil }

// currentSession returns a copy of the session state, or nil.
func (c *RESTClient) currentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *RESTClient) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// SignInWithPassword exchanges credentials for a session and caches it on
// the handle.
func (c *RESTClient) SignInWithPassword(ctx context.Context, email string, password []byte) (*Session, error) {
	body := map[string]string{"email": email, "password": string(password)}

	var ar authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", nil, body, &ar); err != nil {
		return nil, err
	}
	if ar.User.ID == "" {
		return nil, fmt.Errorf("%w: sign-in returned no user", ErrUnauthenticated)
	}

	s := &Session{
		AccessToken:  ar.AccessToken,
		RefreshToken: ar.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(ar.ExpiresIn) * time.Second),
		User:         &Principal{ID: ar.User.ID, Email: ar.User.Email},
	}
	c.setSession(s)
	out := *s
	return &out, nil
}

// SignUp creates an account. The meta map is forwarded so backend triggers
// can seed the identity profile row.
func (c *RESTClient) SignUp(ctx context.Context, email string, password []byte, meta map[string]string) (*Principal, error) {
	body := map[string]any{"email": email, "password": string(password)}
	if len(meta) > 0 {
		body["data"] = meta
	}

	var ar authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &ar); err != nil {
		return nil, err
	}
	if ar.User.ID == "" {
		return nil, fmt.Errorf("sign-up returned no user")
	}
	return &Principal{ID: ar.User.ID, Email: ar.User.Email}, nil
}

// GetUser asks the backend who the current token belongs to.
func (c *RESTClient) GetUser(ctx context.Context) (*Principal, error) {
	s := c.currentSession()
	if s == nil {
		return nil, ErrUnauthenticated
	}

	var out struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/v1/user", s, nil, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, ErrUnauthenticated
	}
	return &Principal{ID: out.ID, Email: out.Email}, nil
}

// GetSession returns the cached session without a network round trip. When
// the cached user object is missing, the principal is recovered from the
// access token claims; the signature is the backend's to verify, not ours.
func (c *RESTClient) GetSession(ctx context.Context) (*Session, error) {
	s := c.currentSession()
	if s == nil || s.AccessToken == "" {
		return nil, ErrUnauthenticated
	}
	if !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", ErrUnauthenticated)
	}
	if s.User == nil {
		p, err := principalFromToken(s.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		s.User = p
	}
	return s, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func principalFromToken(token string) (*Principal, error) {
	claims := &tokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return &Principal{ID: claims.Subject, Email: claims.Email}, nil
}

// SignOut invalidates the session for the given scope. Local sign-out always
// drops the cached session, even when the request fails.
func (c *RESTClient) SignOut(ctx context.Context, scope SignOutScope) error {
	s := c.currentSession()
	if scope == SignOutLocal {
		defer c.setSession(nil)
	}
	if s == nil {
		return nil
	}
	return c.doJSON(ctx, http.MethodPost, "/auth/v1/logout?scope="+string(scope), s, nil, nil)
}

// Table returns a handle for one remote table.
func (c *RESTClient) Table(name string) Table {
	return &restTable{client: c, name: name}
}

// Bucket returns the storage handle for one bucket, backed by the
// S3-compatible storage endpoint.
func (c *RESTClient) Bucket(name string) Storage {
	return newS3Storage(c.storage, name)
}

// doJSON performs one request, decoding a JSON response into out when out is
// non-nil, and classifying error responses.
func (c *RESTClient) doJSON(ctx context.Context, method, path string, s *Session, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.decorate(req, s)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Classify(resp.StatusCode, readErrorMessage(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *RESTClient) decorate(req *http.Request, s *Session) {
	req.Header.Set("apikey", c.anonKey)
	if s != nil && s.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
}

func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(b) == 0 {
		return "no error detail"
	}
	var e struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil {
		switch {
		case e.Message != "":
			return e.Message
		case e.Msg != "":
			return e.Msg
		case e.Error != "":
			return e.Error
		}
	}
	return string(b)
}

// restTable implements Table against /rest/v1/<name>.
type restTable struct {
	client *RESTClient
	name   string
}

func (t *restTable) path(q Query) string {
	v := url.Values{}
	if len(q.Columns) > 0 {
		v.Set("select", strings.Join(q.Columns, ","))
	}
	for _, f := range q.Filters {
		v.Set(f.Column, "eq."+fmt.Sprint(f.Value))
	}
	if q.OrderBy != "" {
		dir := ".desc"
		if q.Ascending {
			dir = ".asc"
		}
		v.Set("order", q.OrderBy+dir)
	}
	p := "/rest/v1/" + t.name
	if enc := v.Encode(); enc != "" {
		p += "?" + enc
	}
	return p
}

func (t *restTable) Select(ctx context.Context, q Query) ([]Row, error) {
	var rows []Row
	err := t.client.doJSON(ctx, http.MethodGet, t.path(q), t.client.currentSession(), nil, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SelectSingle is the "maybe single" fetch: zero rows is nil, not an error.
func (t *restTable) SelectSingle(ctx context.Context, q Query) (Row, error) {
	rows, err := t.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (t *restTable) Insert(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	return t.client.doPrefer(ctx, t.path(Query{}), rows, "return=minimal", nil)
}

func (t *restTable) Upsert(ctx context.Context, rows []Row, conflictKey string) ([]Row, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	p := t.path(Query{}) + "?on_conflict=" + url.QueryEscape(conflictKey)
	var out []Row
	err := t.client.doPrefer(ctx, p, rows, "resolution=merge-duplicates,return=representation", &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *restTable) Delete(ctx context.Context, q Query) error {
	return t.client.doJSON(ctx, http.MethodDelete, t.path(q), t.client.currentSession(), nil, nil)
}

// doPrefer is doJSON for POSTs that need a Prefer header.
func (c *RESTClient) doPrefer(ctx context.Context, path string, rows []Row, prefer string, out any) error {
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	c.decorate(req, c.currentSession())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", prefer)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Classify(resp.StatusCode, readErrorMessage(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

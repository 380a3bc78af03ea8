package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/autosettle/autosettle/internal/analytics"
	"github.com/autosettle/autosettle/internal/auth"
	"github.com/autosettle/autosettle/internal/sales/deals"
	"github.com/autosettle/autosettle/internal/shared"
)

type routerAuthRepo struct {
	users  map[string]*auth.User
	nextID int64
}

func (r *routerAuthRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	user, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *routerAuthRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *routerAuthRepo) CreateUser(ctx context.Context, email, name, passwordHash string) (*auth.User, error) {
	user := &auth.User{ID: r.nextID, Email: email, Name: name, PasswordHash: passwordHash, IsActive: true, CreatedAt: time.Now()}
	r.nextID++
	r.users[email] = user
	return user, nil
}

func (r *routerAuthRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (r *routerAuthRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

type routerDealsRepo struct{}

func (routerDealsRepo) WithTx(ctx context.Context, fn func(context.Context, deals.Repository) error) error {
	return fn(ctx, routerDealsRepo{})
}
func (routerDealsRepo) Get(ctx context.Context, ownerID int64, id string) (*deals.Deal, error) {
	return nil, shared.ErrNotFound
}
func (routerDealsRepo) List(ctx context.Context, req deals.ListFilter) ([]deals.Deal, int, error) {
	return nil, 0, nil
}
func (routerDealsRepo) ListAllByOwner(ctx context.Context, ownerID int64) ([]deals.Deal, error) {
	return nil, nil
}
func (routerDealsRepo) ListWithOwners(ctx context.Context) ([]deals.DealWithOwner, error) {
	return nil, nil
}
func (routerDealsRepo) Create(ctx context.Context, deal deals.Deal) error { return nil }
func (routerDealsRepo) Update(ctx context.Context, ownerID int64, id string, updates map[string]interface{}) error {
	return nil
}
func (routerDealsRepo) Delete(ctx context.Context, ownerID int64, id string) error { return nil }
func (routerDealsRepo) InsertServiceLine(ctx context.Context, line deals.ServiceLine) (int64, error) {
	return 0, nil
}
func (routerDealsRepo) DeleteServiceLines(ctx context.Context, dealID string) error { return nil }
func (routerDealsRepo) InsertPaymentSchedule(ctx context.Context, schedule deals.PaymentSchedule) (int64, error) {
	return 0, nil
}
func (routerDealsRepo) DeletePaymentSchedules(ctx context.Context, dealID string) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authHandler := auth.NewHandler(logger, auth.NewService(&routerAuthRepo{users: make(map[string]*auth.User), nextID: 1}), sessions)
	dealsHandler := deals.NewHandler(logger, deals.NewService(routerDealsRepo{}, nil))
	analyticsHandler := analytics.NewHandler(logger, analytics.NewService(routerDealsRepo{}, nil))

	cfg := &Config{AppEnv: "development", AppRequestTimeout: 30 * time.Second}
	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessions,
		AuthHandler:      authHandler,
		DealsHandler:     dealsHandler,
		AnalyticsHandler: analyticsHandler,
	})
}

func do(router http.Handler, method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// The documented paths must resolve through the assembled router, not just
// on a handler mounted in isolation.
func TestRouterServesDocumentedAuthPaths(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/auth/register",
		`{"email":"kim@example.com","name":"Kim","password":"secret-pass"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(router, http.MethodPost, "/api/auth/login",
		`{"email":"kim@example.com","password":"secret-pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies())

	rec = do(router, http.MethodGet, "/api/auth/me", "", rec.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "kim@example.com")

	// A double segment would mean the handler prefix is mounted twice.
	rec = do(router, http.MethodPost, "/api/auth/auth/login",
		`{"email":"kim@example.com","password":"secret-pass"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterGatesDealsBehindAuth(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, http.MethodGet, "/api/deals", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	do(router, http.MethodPost, "/api/auth/register",
		`{"email":"kim@example.com","name":"Kim","password":"secret-pass"}`, nil)
	login := do(router, http.MethodPost, "/api/auth/login",
		`{"email":"kim@example.com","password":"secret-pass"}`, nil)
	require.Equal(t, http.StatusOK, login.Code)

	rec = do(router, http.MethodGet, "/api/deals", "", login.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/dashboard/kpis", "", login.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}

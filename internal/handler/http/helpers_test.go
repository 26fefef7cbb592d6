package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/moni-del/dragon-d/internal/auth"
	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/event"
	"github.com/moni-del/dragon-d/internal/gate"
	"github.com/moni-del/dragon-d/internal/repository"
	redisrepo "github.com/moni-del/dragon-d/internal/repository/redis"
	"github.com/moni-del/dragon-d/internal/service"
	"github.com/moni-del/dragon-d/pkg/health"
	"github.com/moni-del/dragon-d/pkg/httputil"
	"github.com/moni-del/dragon-d/pkg/i18n"
	pkgkafka "github.com/moni-del/dragon-d/pkg/kafka"
	"github.com/moni-del/dragon-d/pkg/middleware"
)

const testJWTSecret = "test-secret-that-is-at-least-32-bytes"

// ============================================================================
// Mock repositories
// ============================================================================

type mockDiscountRepository struct {
	mock.Mock
}

func (m *mockDiscountRepository) GetByKey(ctx context.Context, code string) (*domain.DiscountCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DiscountCode), args.Error(1)
}

func (m *mockDiscountRepository) FindByCode(ctx context.Context, code string) (*domain.DiscountCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DiscountCode), args.Error(1)
}

func (m *mockDiscountRepository) IncrementUsage(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDiscountRepository) Create(ctx context.Context, code *domain.DiscountCode) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockDiscountRepository) Update(ctx context.Context, code *domain.DiscountCode) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockDiscountRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockDiscountRepository) List(ctx context.Context, filter repository.DiscountFilter) ([]domain.DiscountCode, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.DiscountCode), args.Int(1), args.Error(2)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// ============================================================================
// Fakes
// ============================================================================

// nopWriter swallows Kafka messages.
type nopWriter struct{}

func (nopWriter) WriteMessages(context.Context, ...kafka.Message) error { return nil }
func (nopWriter) Close() error                                          { return nil }

// fakeDiscord is a scripted Discord API.
type fakeDiscord struct {
	token     string
	user      *gate.User
	member    bool
	memberErr error
}

func (f *fakeDiscord) AuthorizeURL(state string) string {
	return "https://discord.test/oauth2/authorize?state=" + state
}

func (f *fakeDiscord) Exchange(_ context.Context, code string) (string, error) {
	if code != "good-code" {
		return "", io.ErrUnexpectedEOF
	}
	return f.token, nil
}

func (f *fakeDiscord) CurrentUser(context.Context, string) (*gate.User, error) {
	return f.user, nil
}

func (f *fakeDiscord) IsGuildMember(context.Context, string) (bool, error) {
	return f.member, f.memberErr
}

// ============================================================================
// Test server
// ============================================================================

type testServer struct {
	router     http.Handler
	jwt        *auth.JWTManager
	discounts  *mockDiscountRepository
	products   *mockProductRepository
	categories *mockCategoryRepository
	discord    *fakeDiscord
	usage      *service.UsageWriter
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T, opts ...func(*RouterDeps)) *testServer {
	t.Helper()
	logger := testLogger()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ts := &testServer{
		jwt:        auth.NewJWTManager(testJWTSecret, time.Hour, time.Hour),
		discounts:  &mockDiscountRepository{},
		products:   &mockProductRepository{},
		categories: &mockCategoryRepository{},
		discord: &fakeDiscord{
			token:  "discord-access",
			user:   &gate.User{ID: "discord-42", Username: "drago", GlobalName: "Drago"},
			member: true,
		},
	}

	producer := event.NewProducer(pkgkafka.NewProducerWithWriter(nopWriter{}, []string{"localhost:9092"}, logger), logger)
	catalog := service.NewCatalogService(ts.products, ts.categories, nil, producer, logger)
	ts.usage = service.NewUsageWriter(ts.discounts, time.Second, logger)

	sessions := service.NewSessionService(service.SessionDeps{
		Sessions: redisrepo.NewSessionRepository(client, time.Hour),
		Registry: ts.discounts,
		Products: catalog,
		Usage:    ts.usage,
		Flying:   service.NewFlyingFeed(),
		Producer: producer,
		Logger:   logger,
	})

	hash, err := bcryptHash("hunter22")
	require.NoError(t, err)

	deps := RouterDeps{
		Sessions:   sessions,
		Catalog:    catalog,
		Discounts:  service.NewDiscountService(ts.discounts, producer, logger),
		Auth:       service.NewAuthService(ts.jwt, "admin@dtstore.test", hash, logger),
		Gate:       gate.NewService(ts.discord, "https://discord.gg/dt", logger),
		JWT:        ts.jwt,
		Health:     health.NewHandler(),
		Translator: i18n.New(),
		GateConfig: GateConfig{ClientURL: "http://store.test/"},
		CORS:       middleware.DefaultCORSConfig(),
		Logger:     logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	ts.router = NewRouter(deps)
	return ts
}

func (ts *testServer) shopperToken(t *testing.T, sessionID string) string {
	t.Helper()
	token, err := ts.jwt.GenerateShopperToken("discord-42", "Drago", sessionID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	token, err := ts.jwt.GenerateAdminToken("admin@dtstore.test")
	require.NoError(t, err)
	return token
}

// do sends a request through the router. body may be nil, a string or any
// JSON-encodable value.
func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func shopperCookie(token string) map[string]string {
	return map[string]string{"Cookie": SessionCookie + "=" + token}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// envelope mirrors httputil.Response with a typed payload.
type envelope[T any] struct {
	Data  T                       `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func sampleProduct(id string, price float64) *domain.Product {
	return &domain.Product{
		ID:         id,
		Name:       "Dragon Flame Car",
		Price:      price,
		CategoryID: "cars",
		Rarity:     domain.RarityLegendary,
		InStock:    true,
	}
}

func bcryptHash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(h), err
}

package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwynn/storefront/internal/auth"
	"github.com/mwynn/storefront/internal/domain"
	"github.com/mwynn/storefront/internal/mailer"
	"github.com/mwynn/storefront/internal/repository"
	"github.com/mwynn/storefront/internal/service"
	apperrors "github.com/mwynn/storefront/pkg/errors"
	"github.com/mwynn/storefront/pkg/health"
	"github.com/mwynn/storefront/pkg/middleware"
)

// --- Mock repositories ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, email string) error {
	args := m.Called(ctx, id, name, email)
	return args.Error(0)
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepository) SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockUserRepository) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	args := m.Called(ctx, tokenHash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, params url.Values) (*repository.ProductList, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.ProductList), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, id primitive.ObjectID, update repository.ProductUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *mockProductRepository) SaveReviews(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	args := m.Called(ctx, id, quantity)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, deliveredAt *time.Time) error {
	args := m.Called(ctx, id, status, deliveredAt)
	return args.Error(0)
}

func (m *mockOrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// noopPublisher satisfies event.Publisher without a broker.
type noopPublisher struct{}

func (noopPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error { return nil }
func (noopPublisher) PublishOrderCreated(ctx context.Context, order *domain.Order) error { return nil }
func (noopPublisher) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, previousStatus string) error {
	return nil
}

// --- Test helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

const testJWTSecret = "test-secret-for-session-tokens!!"

type testEnv struct {
	userRepo    *mockUserRepository
	productRepo *mockProductRepository
	orderRepo   *mockOrderRepository
	router      http.Handler
	jwtManager  *auth.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := testLogger()
	jwtManager := auth.NewJWTManager(testJWTSecret, time.Hour)

	userRepo := &mockUserRepository{}
	productRepo := &mockProductRepository{}
	orderRepo := &mockOrderRepository{}

	userService := service.NewUserService(
		userRepo, jwtManager, mailer.NewLogMailer(logger), noopPublisher{},
		logger, 15*time.Minute, "http://localhost:8080",
	)
	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, noopPublisher{}, logger)

	router := NewRouter(userService, productService, orderService, health.NewHandler(), logger, RouterConfig{
		CORS:          middleware.DefaultCORSConfig(),
		SessionCookie: SessionCookieConfig{MaxAge: time.Hour},
	})

	return &testEnv{
		userRepo:    userRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		router:      router,
		jwtManager:  jwtManager,
	}
}

// sessionFor issues a session token for the user and primes the identity
// lookup behind the auth middleware.
func (e *testEnv) sessionFor(t *testing.T, user *domain.User) *http.Cookie {
	t.Helper()
	token, err := e.jwtManager.Generate(user.ID.Hex(), user.Email, user.Role)
	require.NoError(t, err)
	e.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	return &http.Cookie{Name: middleware.CredentialCookie, Value: token}
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- Tests ---

func TestRegister_SetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	env.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = primitive.NewObjectID()
		}).
		Return(nil)

	body := `{"name":"Jordan","email":"jordan@example.com","password":"s3cret-pass"}`
	rec := doJSON(t, env.router, http.MethodPost, "/api/registerUser", body, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envlp := decodeEnvelope(t, rec)
	assert.Equal(t, true, envlp["success"])
	assert.NotEmpty(t, envlp["token"])

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CredentialCookie {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	assert.NotEmpty(t, sessionCookie.Value)
}

func TestRegister_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Jordan","email":"not-an-email","password":"short"}`
	rec := doJSON(t, env.router, http.MethodPost, "/api/registerUser", body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envlp := decodeEnvelope(t, rec)
	assert.Equal(t, false, envlp["success"])
	assert.Contains(t, envlp["message"], "Email")
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &domain.User{ID: primitive.NewObjectID(), Email: "jordan@example.com", PasswordHash: string(hash)}
	env.userRepo.On("GetByEmail", mock.Anything, "jordan@example.com").Return(stored, nil)

	body := `{"email":"jordan@example.com","password":"wrong-pass"}`
	rec := doJSON(t, env.router, http.MethodPost, "/api/login", body, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decodeEnvelope(t, rec)["message"])
}

func TestGetMe_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/me", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "please login to access this resource", decodeEnvelope(t, rec)["message"])
}

func TestAdminRoute_ForbiddenForRegularUser(t *testing.T) {
	env := newTestEnv(t)

	user := &domain.User{ID: primitive.NewObjectID(), Email: "jordan@example.com", Role: domain.RoleUser}
	cookie := env.sessionFor(t, user)

	rec := doJSON(t, env.router, http.MethodGet, "/api/admin/users", "", cookie)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "role user is not allowed to access this resource", decodeEnvelope(t, rec)["message"])
}

func TestListProducts_Envelope(t *testing.T) {
	env := newTestEnv(t)

	env.productRepo.On("List", mock.Anything, mock.Anything).Return(&repository.ProductList{
		Products:      []domain.Product{{Name: "Mechanical Keyboard"}},
		TotalCount:    12,
		FilteredCount: 1,
		PageSize:      5,
	}, nil)

	rec := doJSON(t, env.router, http.MethodGet, "/api/allProduct?keyword=keyboard", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	envlp := decodeEnvelope(t, rec)
	assert.Equal(t, true, envlp["success"])
	assert.Equal(t, float64(12), envlp["products_count"])
	assert.Equal(t, float64(1), envlp["filtered_products_count"])
	assert.Equal(t, float64(5), envlp["result_per_page"])
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	id := primitive.NewObjectID()
	env.productRepo.On("GetByID", mock.Anything, id).Return(nil, apperrors.NotFound("product"))

	rec := doJSON(t, env.router, http.MethodGet, "/api/singleProduct/"+id.Hex(), "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", decodeEnvelope(t, rec)["message"])
}

func TestGetProduct_MalformedID(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/singleProduct/not-an-id", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertReview_UpdatesRating(t *testing.T) {
	env := newTestEnv(t)

	user := &domain.User{ID: primitive.NewObjectID(), Name: "Jordan", Email: "jordan@example.com", Role: domain.RoleUser}
	cookie := env.sessionFor(t, user)

	productID := primitive.NewObjectID()
	stored := &domain.Product{
		ID:         productID,
		Reviews:    []domain.Review{{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Rating: 5}},
		Rating:     5,
		NumReviews: 1,
	}
	env.productRepo.On("GetByID", mock.Anything, productID).Return(stored, nil)
	env.productRepo.On("SaveReviews", mock.Anything, mock.Anything).Return(nil)

	body := `{"product_id":"` + productID.Hex() + `","rating":3,"comment":"decent"}`
	rec := doJSON(t, env.router, http.MethodPost, "/api/reviews", body, cookie)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	envlp := decodeEnvelope(t, rec)
	product := envlp["product"].(map[string]any)
	assert.Equal(t, float64(4), product["rating"])
	assert.Equal(t, float64(2), product["num_reviews"])
}

func TestListReviews_ByIDParam(t *testing.T) {
	env := newTestEnv(t)

	productID := primitive.NewObjectID()
	stored := &domain.Product{
		ID:      productID,
		Reviews: []domain.Review{{ID: primitive.NewObjectID(), Rating: 5, Comment: "great"}},
	}
	env.productRepo.On("GetByID", mock.Anything, productID).Return(stored, nil)

	// The web client sends the product under "id".
	rec := doJSON(t, env.router, http.MethodGet, "/api/allReviews?id="+productID.Hex(), "", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reviews := decodeEnvelope(t, rec)["reviews"].([]any)
	assert.Len(t, reviews, 1)

	rec = doJSON(t, env.router, http.MethodGet, "/api/allReviews?productId="+productID.Hex(), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadProduct_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	env.productRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Product).ID = primitive.NewObjectID()
		}).
		Return(nil)

	body := `{"name":"Desk Lamp","price":2500,"category":"home","stock":10}`
	rec := doJSON(t, env.router, http.MethodPost, "/api/uploadProducts", body, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeEnvelope(t, rec)["success"])
}

func TestUpdateProduct_AllowedForRegularUser(t *testing.T) {
	env := newTestEnv(t)

	user := &domain.User{ID: primitive.NewObjectID(), Email: "jordan@example.com", Role: domain.RoleUser}
	cookie := env.sessionFor(t, user)

	productID := primitive.NewObjectID()
	env.productRepo.On("Update", mock.Anything, productID, mock.Anything).Return(nil)
	env.productRepo.On("GetByID", mock.Anything, productID).
		Return(&domain.Product{ID: productID, Name: "Desk Lamp", Price: 1999}, nil)

	body := `{"price":1999}`
	rec := doJSON(t, env.router, http.MethodPut, "/api/updateProduct/"+productID.Hex(), body, cookie)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLogout_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/api/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := &domain.User{ID: primitive.NewObjectID(), Email: "jordan@example.com", Role: domain.RoleUser}
	cookie := env.sessionFor(t, user)

	rec = doJSON(t, env.router, http.MethodGet, "/api/logout", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateOrderStatus_DeliveredConflict(t *testing.T) {
	env := newTestEnv(t)

	admin := &domain.User{ID: primitive.NewObjectID(), Email: "admin@example.com", Role: domain.RoleAdmin}
	cookie := env.sessionFor(t, admin)

	orderID := primitive.NewObjectID()
	env.orderRepo.On("GetByID", mock.Anything, orderID).
		Return(&domain.Order{ID: orderID, Status: domain.OrderStatusDelivered}, nil)

	body := `{"status":"shipped"}`
	rec := doJSON(t, env.router, http.MethodPut, "/api/updateOrder/"+orderID.Hex(), body, cookie)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "order has already been delivered", decodeEnvelope(t, rec)["message"])
}

func TestCreateOrder_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	body := `{"order_items":[{"product_id":"abc","quantity":1}],"total_price":100}`
	rec := doJSON(t, env.router, http.MethodPost, "/api/newOrder", body, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env.router, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mariyam933/fyp/internal/auth"
	"github.com/mariyam933/fyp/internal/config"
	"github.com/mariyam933/fyp/internal/database"
	"github.com/mariyam933/fyp/internal/events"
	"github.com/mariyam933/fyp/internal/handlers"
	"github.com/mariyam933/fyp/internal/models"
	"github.com/mariyam933/fyp/internal/ocr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- fakes ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BillEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.BillEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type sentMail struct {
	to       string
	password string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendWelcome(_ context.Context, u *models.User, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: u.Email, password: password})
	return m.err
}

type fakeReader struct {
	res *ocr.Result
	err error
}

func (f fakeReader) ReadMeter(context.Context, []byte) (*ocr.Result, error) {
	return f.res, f.err
}

// --- harness ---

type testEnv struct {
	engine     *gin.Engine
	tokens     *auth.TokenManager
	publisher  *recordingPublisher
	mailer     *recordingMailer
	uploadsDir string
}

func newTestEnv(t *testing.T, reader ocr.Reader) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, logger)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{
			BaseURL:           "http://test",
			AllowRegistration: true,
			CORSOrigins:       []string{"http://localhost:3000"},
		},
		Billing:   config.BillingConfig{DueDays: 15, DefaultPassword: "12345678"},
		Uploads:   config.UploadsConfig{Dir: t.TempDir(), MaxBytes: 1 << 20},
		RateLimit: config.RateLimitConfig{PerSecond: 1000, Burst: 1000},
	}

	env := &testEnv{
		tokens:     auth.NewTokenManager("test-secret", time.Hour),
		publisher:  &recordingPublisher{},
		mailer:     &recordingMailer{},
		uploadsDir: cfg.Uploads.Dir,
	}

	settings := database.NewSettingsStore(db)
	bills := database.NewBillStore(db, cfg.Billing.DueDays)
	users := database.NewUserStore(db)
	uploads := handlers.Uploads{Dir: cfg.Uploads.Dir, BaseURL: cfg.Server.BaseURL, MaxBytes: cfg.Uploads.MaxBytes}

	env.engine = Setup(cfg, Handlers{
		Auth:     handlers.NewAuthHandler(users, env.tokens, logger),
		Accounts: handlers.NewAccountHandler(users, env.mailer, cfg.Billing.DefaultPassword, logger),
		Bills:    handlers.NewBillHandler(bills, settings, env.publisher, uploads, logger),
		Settings: handlers.NewSettingsHandler(settings, logger),
		Uploads:  handlers.NewUploadHandler(uploads, reader, logger),
		Reports:  handlers.NewReportHandler(database.NewReportStore(db), logger),
	}, env.tokens, logger)

	return env
}

func (e *testEnv) token(t *testing.T, id uint, role models.Role) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken(id, role)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doMultipart(t *testing.T, path string, fields map[string]string, fileField, filename string, file []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

// createCustomer adds a customer through the API and returns it.
func (e *testEnv) createCustomer(t *testing.T, adminToken, email string) models.User {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/customer", map[string]any{
		"name": "Customer " + email, "email": email, "address": "House 1",
		"phone": "0300", "meterNo": "M-" + email,
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.User](t, w)
}

// --- tests ---

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/api/settings", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettingsAPI(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)
	reader := env.token(t, 2, models.RoleMeterReader)
	customer := env.token(t, 3, models.RoleCustomer)

	// Any role can read; defaults are created on first read
	w := env.do(t, http.MethodGet, "/api/settings", nil, customer)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[models.Settings](t, w)
	assert.Equal(t, models.DefaultTariffRates(), st.TariffRates)

	// Only admins write
	w = env.do(t, http.MethodPut, "/api/settings", map[string]any{"unitPrice": 40}, reader)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Numeric strings are accepted
	w = env.do(t, http.MethodPut, "/api/settings", map[string]any{"unitPrice": "40", "gstRate": 0.2}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st = decode[models.Settings](t, w)
	assert.Equal(t, 40.0, st.UnitPrice)
	assert.Equal(t, 0.2, st.GSTRate)
	assert.Equal(t, 3.23, st.FCRate)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"non-numeric", map[string]any{"fcRate": "abc"}, "fcRate"},
		{"negative", map[string]any{"qtrRate": -1}, "qtrRate"},
		{"null", map[string]any{"waterBill": nil}, "waterBill"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, "/api/settings", tt.body, admin)
			require.Equal(t, http.StatusBadRequest, w.Code)
			got := decode[map[string]string](t, w)
			assert.Equal(t, tt.field, got["field"])
			assert.Equal(t, "invalid "+tt.field, got["error"])
		})
	}
}

func TestBillLifecycle(t *testing.T) {
	// SETUP
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)
	reader := env.token(t, 2, models.RoleMeterReader)
	cust := env.createCustomer(t, admin, "ayesha@example.com")

	// EXECUTE: first bill with an explicit previous reading
	w := env.do(t, http.MethodPost, "/api/bill", map[string]any{
		"customerId": cust.ID, "meterSrNo": "SR-100", "currentReading": 150, "previousReading": 100,
	}, reader)

	// ASSERT
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[models.Bill](t, w)
	assert.Equal(t, 50.0, first.UnitsConsumed)
	assert.Equal(t, 3600.07, first.TotalBill)
	assert.Equal(t, models.BillStatusPending, first.Status)

	// Previous reading lookup
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/bill/prev/%d", cust.ID), nil, reader)
	require.Equal(t, http.StatusOK, w.Code)
	prev := decode[map[string]any](t, w)
	assert.Equal(t, 150.0, prev["previousReading"])
	assert.EqualValues(t, first.ID, prev["billId"])

	// Second bill chains from the first
	w = env.do(t, http.MethodPost, "/api/bill", map[string]any{
		"customerId": fmt.Sprint(cust.ID), "meterSrNo": "SR-100", "currentReading": "200",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	second := decode[models.Bill](t, w)
	assert.Equal(t, 150.0, second.PreviousReading)
	assert.Equal(t, 50.0, second.UnitsConsumed)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/bill/%d", cust.ID), nil, reader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Bill](t, w), 2)

	w = env.do(t, http.MethodGet, "/api/bill", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]models.Bill](t, w)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Customer)
	assert.Equal(t, cust.Name, all[0].Customer.Name)

	// Edit reprices with the tariff the bill was created under
	w = env.do(t, http.MethodPut, "/api/settings", map[string]any{"unitPrice": 100}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/bill/%d", first.ID), map[string]any{
		"unitsConsumed": 0, "status": "paid",
	}, reader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edited := decode[models.Bill](t, w)
	assert.Equal(t, 1310.0, edited.TotalBill)
	assert.Equal(t, models.BillStatusPaid, edited.Status)

	// Delete
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/bill/%d", first.ID), nil, reader)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/bill/%d", first.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/bill/%d", first.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{events.BillCreated, events.BillCreated, events.BillUpdated, events.BillDeleted}, env.publisher.types())
}

func TestCreateBillErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)
	cust := env.createCustomer(t, admin, "bilal@example.com")

	tests := []struct {
		name       string
		token      string
		body       map[string]any
		wantStatus int
		wantError  string
		wantField  string
	}{
		{
			name:       "missing customer",
			token:      admin,
			body:       map[string]any{"meterSrNo": "SR", "currentReading": 10, "previousReading": 0},
			wantStatus: http.StatusBadRequest, wantError: "customerId is required", wantField: "customerId",
		},
		{
			name:       "missing current reading",
			token:      admin,
			body:       map[string]any{"customerId": cust.ID, "meterSrNo": "SR"},
			wantStatus: http.StatusBadRequest, wantError: "currentReading is required", wantField: "currentReading",
		},
		{
			name:       "missing meter serial",
			token:      admin,
			body:       map[string]any{"customerId": cust.ID, "currentReading": 10, "previousReading": 0},
			wantStatus: http.StatusBadRequest, wantError: "meterSrNo is required", wantField: "meterSrNo",
		},
		{
			name:       "non-numeric reading",
			token:      admin,
			body:       map[string]any{"customerId": cust.ID, "meterSrNo": "SR", "currentReading": "lots"},
			wantStatus: http.StatusBadRequest, wantError: "invalid currentReading", wantField: "currentReading",
		},
		{
			name:       "unknown customer",
			token:      admin,
			body:       map[string]any{"customerId": 9999, "meterSrNo": "SR", "currentReading": 10, "previousReading": 0},
			wantStatus: http.StatusNotFound, wantError: "customer not found",
		},
		{
			name:       "negative units",
			token:      admin,
			body:       map[string]any{"customerId": cust.ID, "meterSrNo": "SR", "currentReading": 90, "previousReading": 100},
			wantStatus: http.StatusBadRequest, wantError: "current reading is less than previous reading", wantField: "currentReading",
		},
		{
			name:       "first bill without previous reading",
			token:      admin,
			body:       map[string]any{"customerId": cust.ID, "meterSrNo": "SR", "currentReading": 5000},
			wantStatus: http.StatusBadRequest, wantError: "previousReading is required for a customer's first bill", wantField: "previousReading",
		},
		{
			name:       "customers cannot create bills",
			token:      env.token(t, cust.ID, models.RoleCustomer),
			body:       map[string]any{"customerId": cust.ID, "meterSrNo": "SR", "currentReading": 10, "previousReading": 0},
			wantStatus: http.StatusForbidden, wantError: "You do not have permission to access this resource",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/bill", tt.body, tt.token)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			got := decode[map[string]string](t, w)
			assert.Equal(t, tt.wantError, got["error"])
			assert.Equal(t, tt.wantField, got["field"])
		})
	}
	assert.Empty(t, env.publisher.types())
}

func TestCustomerBillVisibility(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)
	a := env.createCustomer(t, admin, "a@example.com")
	b := env.createCustomer(t, admin, "b@example.com")

	w := env.do(t, http.MethodPost, "/api/bill", map[string]any{
		"customerId": a.ID, "meterSrNo": "SR", "currentReading": 10, "previousReading": 0,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code)

	// No bills yet
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/bill/%d", b.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/bill/prev/%d", b.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// A customer sees only their own bills
	tokenA := env.token(t, a.ID, models.RoleCustomer)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/bill/%d", a.ID), nil, tokenA)
	assert.Equal(t, http.StatusOK, w.Code)
	tokenB := env.token(t, b.ID, models.RoleCustomer)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/bill/%d", a.ID), nil, tokenB)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/bill/abc", nil, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBillMultipartWithImage(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)
	cust := env.createCustomer(t, admin, "photo@example.com")

	w := env.doMultipart(t, "/api/bill", map[string]string{
		"customerId":      fmt.Sprint(cust.ID),
		"meterSrNo":       "SR-IMG",
		"currentReading":  "150",
		"previousReading": "100",
		"isOcrProcessed":  "true",
	}, "imageFile", "meter.png", pngBytes(t), admin)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bill := decode[models.Bill](t, w)
	assert.True(t, bill.IsOCRProcessed)
	require.True(t, strings.HasPrefix(bill.ImageURL, "http://test/uploads/"), bill.ImageURL)

	stored := filepath.Join(env.uploadsDir, strings.TrimPrefix(bill.ImageURL, "http://test/uploads/"))
	_, err := os.Stat(stored)
	assert.NoError(t, err)

	// A rejected bill leaves no file behind
	w = env.doMultipart(t, "/api/bill", map[string]string{
		"customerId": "9999", "meterSrNo": "SR", "currentReading": "1", "previousReading": "0",
	}, "imageFile", "meter.png", pngBytes(t), admin)
	require.Equal(t, http.StatusNotFound, w.Code)
	entries, err := os.ReadDir(env.uploadsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUploadAndScan(t *testing.T) {
	reading := 4521.0
	env := newTestEnv(t, fakeReader{res: &ocr.Result{
		Candidates:     []float64{4521, 220},
		CurrentReading: &reading,
		MeterSrNo:      "12345678",
	}})
	reader := env.token(t, 2, models.RoleMeterReader)

	w := env.doMultipart(t, "/api/upload", nil, "file", "x.png", pngBytes(t), reader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]string](t, w)["url"], "http://test/uploads/")

	w = env.doMultipart(t, "/api/upload", nil, "file", "x.txt", []byte("hello"), reader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doMultipart(t, "/api/upload", map[string]string{"other": "1"}, "", "", nil, reader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doMultipart(t, "/api/meter-readings/scan", nil, "meterImage", "m.png", pngBytes(t), reader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[map[string]any](t, w)
	assert.Equal(t, 4521.0, got["currentReading"])
	assert.Equal(t, "12345678", got["meterSrNo"])
	assert.Len(t, got["candidates"], 2)
}

func TestScanFailures(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		env := newTestEnv(t, nil)
		tok := env.token(t, 1, models.RoleAdmin)
		w := env.doMultipart(t, "/api/meter-readings/scan", nil, "meterImage", "m.png", pngBytes(t), tok)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("reader error", func(t *testing.T) {
		env := newTestEnv(t, fakeReader{err: fmt.Errorf("quota exceeded")})
		tok := env.token(t, 1, models.RoleAdmin)
		w := env.doMultipart(t, "/api/meter-readings/scan", nil, "meterImage", "m.png", pngBytes(t), tok)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "failed to read meter image", decode[map[string]string](t, w)["error"])
	})
}

func TestReceiptAndExport(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)
	cust := env.createCustomer(t, admin, "receipt@example.com")

	w := env.do(t, http.MethodPost, "/api/bill", map[string]any{
		"customerId": cust.ID, "meterSrNo": "SR", "currentReading": 150, "previousReading": 100,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	bill := decode[models.Bill](t, w)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/bill/receipt/%d", bill.ID), nil, env.token(t, cust.ID, models.RoleCustomer))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = env.do(t, http.MethodGet, "/api/bill/receipt/999", nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/bill/export", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, w.Body.Len())
}

func TestAccountsAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)

	// Create a meter reader; the default password is mailed
	w := env.do(t, http.MethodPost, "/api/meter-reader", map[string]any{
		"name": "Reader", "email": "Reader@Example.com", "address": "Depot", "phone": "0311",
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.User](t, w)
	assert.Equal(t, "reader@example.com", created.Email)
	assert.Equal(t, models.RoleMeterReader, created.Role)
	assert.NotContains(t, w.Body.String(), "passwordHash")
	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, sentMail{to: "reader@example.com", password: "12345678"}, env.mailer.sent[0])

	// Duplicate e-mail across roles
	w = env.do(t, http.MethodPost, "/api/admin", map[string]any{
		"name": "Other", "email": "reader@example.com", "address": "HQ", "phone": "1",
	}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Customers need a meter number
	w = env.do(t, http.MethodPost, "/api/customer", map[string]any{
		"name": "No Meter", "email": "nometer@example.com", "address": "x", "phone": "1",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Login with the default password
	w = env.do(t, http.MethodPost, "/login", map[string]any{"email": "reader@example.com", "password": "12345678"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[map[string]any](t, w)
	assert.Equal(t, "meter_reader", login["role"])
	tok, _ := login["token"].(string)
	require.NotEmpty(t, tok)

	w = env.do(t, http.MethodGet, "/api/settings", nil, tok)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/meter-reader", nil, tok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/login", map[string]any{"email": "reader@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/meter-reader", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 1)
}

func TestWelcomeMailFailureDoesNotFailCreation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mailer.err = fmt.Errorf("smtp down")
	admin := env.token(t, 1, models.RoleAdmin)

	w := env.do(t, http.MethodPost, "/api/admin", map[string]any{
		"name": "Admin", "email": "admin2@example.com", "address": "HQ", "phone": "1",
	}, admin)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCustomerCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.token(t, 1, models.RoleAdmin)
	cust := env.createCustomer(t, admin, "crud@example.com")

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/customer/%d", cust.ID), nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/customer/%d", cust.ID), map[string]any{"phone": "0999", "name": ""}, admin)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.User](t, w)
	assert.Equal(t, "0999", updated.Phone)
	assert.Equal(t, cust.Name, updated.Name)

	// Customers with bills are kept
	w = env.do(t, http.MethodPost, "/api/bill", map[string]any{
		"customerId": cust.ID, "meterSrNo": "SR", "currentReading": 1, "previousReading": 0,
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/customer/%d", cust.ID), nil, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	other := env.createCustomer(t, admin, "gone@example.com")
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/customer/%d", other.ID), nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/customer/%d", other.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/customer", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 1)
}

func TestRegisterAndOverview(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/register", map[string]any{
		"name": "Owner", "email": "owner@example.com", "password": "s3cretpass",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/login", map[string]any{"email": "owner@example.com", "password": "s3cretpass"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	tok, _ := decode[map[string]any](t, w)["token"].(string)

	w = env.do(t, http.MethodGet, "/api/overview", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[database.Overview](t, w)
	assert.Zero(t, got.BillCount)
}

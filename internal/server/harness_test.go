package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/parcella/internal/auth/domain"
	authrepository "github.com/smallbiznis/parcella/internal/auth/repository"
	authservice "github.com/smallbiznis/parcella/internal/auth/service"
	"github.com/smallbiznis/parcella/internal/auth/session"
	"github.com/smallbiznis/parcella/internal/authcontext"
	"github.com/smallbiznis/parcella/internal/authorization"
	calendarrepository "github.com/smallbiznis/parcella/internal/calendar/repository"
	calendarservice "github.com/smallbiznis/parcella/internal/calendar/service"
	catalogrepository "github.com/smallbiznis/parcella/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/parcella/internal/catalog/service"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/config"
	invoicerepository "github.com/smallbiznis/parcella/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/parcella/internal/invoice/service"
	"github.com/smallbiznis/parcella/internal/migration"
	patientrepository "github.com/smallbiznis/parcella/internal/patient/repository"
	patientservice "github.com/smallbiznis/parcella/internal/patient/service"
	planrepository "github.com/smallbiznis/parcella/internal/plan/repository"
	planservice "github.com/smallbiznis/parcella/internal/plan/service"
	profilerepository "github.com/smallbiznis/parcella/internal/profile/repository"
	profileservice "github.com/smallbiznis/parcella/internal/profile/service"
	"github.com/smallbiznis/parcella/internal/providers/email"
	"github.com/smallbiznis/parcella/internal/providers/pdf"
	supportrepository "github.com/smallbiznis/parcella/internal/support/repository"
	supportservice "github.com/smallbiznis/parcella/internal/support/service"
	"github.com/smallbiznis/parcella/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "passw0rd-lunga"

type outbox struct {
	sent []email.Message
}

func (o *outbox) Send(ctx context.Context, msg email.Message) error {
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) SendTemplate(ctx context.Context, msg email.Message, templateName string, data any) error {
	return o.Send(ctx, msg)
}

type harness struct {
	t       *testing.T
	engine  *gin.Engine
	authsvc authdomain.Service
	clock   *clock.FakeClock
	outbox  *outbox
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	userRepo, sessionRepo := authrepository.New(conn)
	authsvc := authservice.NewWithClock(log, userRepo, sessionRepo, node, clk)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer})

	planSvc := planservice.New(planservice.Params{DB: conn, Log: log, Repo: planrepository.Provide(), Clock: clk})
	profileSvc := profileservice.New(profileservice.Params{
		DB:       conn,
		Log:      log,
		Repo:     profilerepository.Provide(),
		Defaults: config.NewStaticFiscalDefaultsHolder(config.DefaultFiscalDefaults()),
		Clock:    clk,
	})
	patientSvc := patientservice.New(patientservice.Params{
		DB: conn, Log: log, GenID: node, Repo: patientrepository.Provide(), PlanSvc: planSvc, Clock: clk,
	})
	catalogSvc := catalogservice.New(catalogservice.Params{
		DB: conn, Log: log, GenID: node, Repo: catalogrepository.Provide(), Clock: clk,
	})
	box := &outbox{}
	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Repo:       invoicerepository.Provide(),
		ProfileSvc: profileSvc,
		PatientSvc: patientSvc,
		CatalogSvc: catalogSvc,
		PlanSvc:    planSvc,
		PDF:        pdf.New(),
		Mailer:     box,
		Clock:      clk,
	})
	calendarSvc := calendarservice.New(calendarservice.Params{
		DB: conn, Log: log, GenID: node, Repo: calendarrepository.Provide(),
		PatientSvc: patientSvc, InvoiceSvc: invoiceSvc, Clock: clk,
	})
	supportSvc := supportservice.New(supportservice.Params{
		DB: conn, Log: log, GenID: node, Repo: supportrepository.Provide(), Clock: clk,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{Environment: "test"},
		Log:         log,
		Authsvc:     authsvc,
		Sessions:    session.NewManager(config.Config{}),
		AuthzSvc:    authzSvc,
		ProfileSvc:  profileSvc,
		PatientSvc:  patientSvc,
		CatalogSvc:  catalogSvc,
		PlanSvc:     planSvc,
		InvoiceSvc:  invoiceSvc,
		CalendarSvc: calendarSvc,
		SupportSvc:  supportSvc,
		Clock:       clk,
	})

	return &harness{t: t, engine: engine, authsvc: authsvc, clock: clk, outbox: box}
}

// signup registers a professional and returns the session cookie.
func (h *harness) signup(email string) *http.Cookie {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/auth/signup", nil, map[string]any{
		"email":        email,
		"password":     testPassword,
		"display_name": "Dott.ssa Laura Bianchi",
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return sessionCookie(h.t, rec)
}

func (h *harness) admin(email string) *http.Cookie {
	h.t.Helper()
	_, err := h.authsvc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:       email,
		Password:    testPassword,
		DisplayName: "Supporto",
		Role:        authcontext.RoleAdmin,
	})
	require.NoError(h.t, err)

	rec := h.do(http.MethodPost, "/auth/login", nil, map[string]any{"email": email, "password": testPassword})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(h.t, rec)
}

func (h *harness) do(method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

// decodeData decodes the "data" member of a JSON response into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out), string(envelope.Data))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Error
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == session.DefaultCookieName && cookie.Value != "" {
			return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/fleet-management/internal/config"
	"github.com/iliyamo/fleet-management/internal/database"
	"github.com/iliyamo/fleet-management/internal/handler"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/repository"
	"github.com/iliyamo/fleet-management/internal/service"
	"github.com/iliyamo/fleet-management/internal/storage"
	"github.com/iliyamo/fleet-management/internal/utils"
)

const secret = "router-test-secret"

type fixedCapture struct{}

func (fixedCapture) Extract([]byte) (model.ImageMetadata, error) {
	return model.ImageMetadata{CapturedAt: time.Now().Add(-time.Hour)}, nil
}

type api struct {
	t     *testing.T
	e     *echo.Echo
	users *repository.UserRepo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	images, err := storage.NewLocalStore(t.TempDir(), 1<<20)
	require.NoError(t, err)

	users := repository.NewUserRepo(db, database.SQLite)
	fleet := service.New(db, database.SQLite, service.Options{
		DefaultAlertThreshold: decimal.NewFromInt(100),
		Extractor:             fixedCapture{},
	})

	e := echo.New()
	Mount(e, Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db)),
		Fuel:          handler.NewFuelHandler(fleet, images, 1<<20),
		Assignments:   handler.NewAssignmentHandler(fleet),
		Vehicles:      handler.NewVehicleHandler(repository.NewVehicleRepo(db, database.SQLite)),
		Personnel:     handler.NewPersonnelHandler(cfg, users),
		Incidents:     handler.NewIncidentHandler(fleet),
		Notifications: handler.NewNotificationHandler(repository.NewNotificationRepo(db, database.SQLite)),
	}, Options{JWTSecret: secret, DB: db, MaxUploadBytes: 1 << 20})
	return &api{t: t, e: e, users: users}
}

// user creates an account and returns its id and an access token.
func (a *api) user(email, role string) (uint64, string) {
	a.t.Helper()
	id, err := a.users.Create(context.Background(), repository.NewUser{
		Email: email, FullName: email, Password: "pw-" + email, Role: role,
	}, bcrypt.MinCost)
	require.NoError(a.t, err)
	tok, err := utils.NewAccessToken(secret, id, role, 15)
	require.NoError(a.t, err)
	return id, tok.Token
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) dailyReport(token, remaining string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(a.t, mw.WriteField("remaining_quantity", remaining))
	fw, err := mw.CreateFormFile("image", "gauge.jpg")
	require.NoError(a.t, err)
	_, err = fw.Write([]byte("not really a jpeg"))
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/fuel/daily-reports", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func idOf(t *testing.T, rec *httptest.ResponseRecorder) uint64 {
	t.Helper()
	return uint64(decode(t, rec)["id"].(float64))
}

func TestHealthEndpoints(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestAuth_RegisterAndMe(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "Driver@Example.com", "password": "s3cret", "full_name": "Dee Driver",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, model.RoleChauffeur, user["role"])
	access := body["access"].(map[string]any)["token"].(string)

	rec = a.do(http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "driver@example.com", decode(t, rec)["email"])

	rec = a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": "driver@example.com", "password": "x", "full_name": "Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "driver@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "driver@example.com", "password": "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoles(t *testing.T) {
	a := newAPI(t)
	_, driver := a.user("d@x.io", model.RoleChauffeur)
	_, manager := a.user("m@x.io", model.RoleManager)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/fuel/stock", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/fuel/stock", "garbage", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/v1/fuel/stock", driver, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/fuel/stock", manager, nil).Code)

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/trucks", driver, map[string]string{"plate_number": "x1"}).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/trucks", driver, nil).Code)

	// threshold changes are admin only
	rec := a.do(http.MethodPut, "/v1/fuel/stock/threshold", manager, map[string]string{"alert_threshold": "50"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/v1/personnel", manager, map[string]string{}).Code)
}

func TestFuelLedgerFlow(t *testing.T) {
	a := newAPI(t)
	driverID, driver := a.user("d@x.io", model.RoleChauffeur)
	_, admin := a.user("a@x.io", model.RoleAdmin)

	rec := a.do(http.MethodPost, "/v1/trucks", admin, map[string]string{"plate_number": "ab-123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	truckID := idOf(t, rec)

	rec = a.do(http.MethodPost, "/v1/fuel/replenishments", admin, map[string]string{"quantity": "1000"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/fuel/dispensings", admin, map[string]any{
		"truck_id": truckID, "personnel_id": driverID, "quantity": "1500",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decode(t, rec)
	available, err := decimal.NewFromString(body["available"].(string))
	require.NoError(t, err)
	assert.True(t, available.Equal(decimal.NewFromInt(1000)), available.String())

	rec = a.do(http.MethodPost, "/v1/fuel/dispensings", admin, map[string]any{
		"truck_id": truckID, "personnel_id": driverID, "quantity": "950",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/v1/fuel/stock", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["below_threshold"])
	stock := body["stock"].(map[string]any)
	balance, err := decimal.NewFromString(stock["total_quantity"].(string))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(50)), balance.String())

	rec = a.do(http.MethodGet, "/v1/fuel/export", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "application/vnd.openxmlformats"))

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/v1/fuel/dispensings", driver, nil).Code)
}

func TestAssignmentsAndDailyReports(t *testing.T) {
	a := newAPI(t)
	d1ID, d1 := a.user("d1@x.io", model.RoleChauffeur)
	d2ID, _ := a.user("d2@x.io", model.RoleChauffeur)
	_, admin := a.user("a@x.io", model.RoleAdmin)

	rec := a.do(http.MethodPost, "/v1/trucks", admin, map[string]string{"plate_number": "tr-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	truckID := idOf(t, rec)

	// no assignment yet: nothing to report on
	assert.Equal(t, http.StatusForbidden, a.dailyReport(d1, "12.5").Code)

	rec = a.do(http.MethodPost, "/v1/assignments", admin, map[string]any{"user_id": d1ID, "truck_id": truckID, "site_label": "north"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assignmentID := idOf(t, rec)

	rec = a.do(http.MethodPost, "/v1/assignments", admin, map[string]any{"user_id": d2ID, "truck_id": truckID, "site_label": "north"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/v1/my/assignment", d1, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(assignmentID), decode(t, rec)["id"])

	rec = a.do(http.MethodGet, "/v1/my/daily-reports/today", d1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["submitted"])

	rec = a.dailyReport(d1, "12.5")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusUnprocessableEntity, a.dailyReport(d1, "11").Code)

	rec = a.do(http.MethodGet, "/v1/my/daily-reports/today", d1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["submitted"])

	path := "/v1/assignments/" + strconv.FormatUint(assignmentID, 10)
	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, path+"/deactivate", admin, nil).Code)
	// already inactive
	assert.Equal(t, http.StatusOK, a.do(http.MethodPost, path+"/deactivate", admin, nil).Code)

	rec = a.do(http.MethodPost, "/v1/assignments", admin, map[string]any{"user_id": d2ID, "truck_id": truckID, "site_label": "north"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestIncidentStatusRequiresOffice(t *testing.T) {
	a := newAPI(t)
	_, driver := a.user("d@x.io", model.RoleChauffeur)
	_, manager := a.user("m@x.io", model.RoleManager)

	rec := a.do(http.MethodPost, "/v1/trucks", manager, map[string]string{"plate_number": "inc-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	truckID := idOf(t, rec)

	rec = a.do(http.MethodPost, "/v1/incidents", driver, map[string]any{
		"truck_id": truckID, "title": "Flat tyre", "severity": model.SeverityLow,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	path := "/v1/incidents/" + strconv.FormatUint(idOf(t, rec), 10) + "/status"

	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPatch, path, driver, map[string]string{"status": model.IncidentResolved}).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodPatch, path, manager, map[string]string{"status": model.IncidentResolved}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPatch, path, manager, map[string]string{"status": "bogus"}).Code)
}

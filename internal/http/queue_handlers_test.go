package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voucher-queue/internal/notify"
	"voucher-queue/internal/report"
	"voucher-queue/internal/repository"
	"voucher-queue/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	router   *Router
	patients *service.PatientService
	rooms    *service.RoomService
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()

	queueRepo := repository.NewMemoryQueueRepo()
	patientRepo := repository.NewMemoryPatientsRepo()
	roomRepo := repository.NewMemoryRoomsRepo()
	userRepo := repository.NewMemoryUsersRepo()

	queueSvc := service.NewQueueService(queueRepo, patientRepo, notify.NopNotifier{}, false, log)
	patientSvc := service.NewPatientService(patientRepo, log)
	roomSvc := service.NewRoomService(roomRepo, log)
	authSvc := service.NewAuthService(userRepo, "test-secret", time.Hour, log)
	exporter := report.NewExporter(queueSvc, log)

	require.NoError(t, authSvc.EnsureUser(context.Background(), "admin", "admin123", "Admin"))
	token, err := authSvc.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)

	authHandler := NewAuthHandler(authSvc, log)
	queueHandler := NewQueueHandler(queueSvc, patientSvc, roomSvc, exporter, authHandler, log)
	patientHandler := NewPatientHandler(patientSvc, authHandler, log)
	roomHandler := NewRoomHandler(roomSvc, authHandler, log)

	router := NewRouter(log)
	router.RegisterAuthRoutes(authHandler)
	router.RegisterQueueRoutes(queueHandler)
	router.RegisterPatientRoutes(patientHandler)
	router.RegisterRoomRoutes(roomHandler)

	return &fixture{router: router, patients: patientSvc, rooms: roomSvc, token: token}
}

func (f *fixture) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var res Result[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, ResultSuccess, res.Code, "body: %s", rec.Body.String())
	return res.Result
}

func TestCreateAndListQueueEntries(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/queues", map[string]any{
		"patient_id": "p1",
		"room_id":    "room-a",
		"priority":   2,
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeResult[queueEntryView](t, rec)
	assert.Equal(t, 1, created.TicketNumber)
	assert.Equal(t, "Waiting", created.Status)
	assert.Equal(t, 2, created.Priority)

	rec = f.do(t, http.MethodGet, "/api/v1/queues/room/room-a", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeResult[[]queueEntryView](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, created.ID, entries[0].ID)
}

func TestCreateQueueEntryValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/queues", map[string]any{"room_id": "room-a"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallNextRequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/queues/room/room-a/call-next", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallNextFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/queues", map[string]any{
		"patient_id": "p1", "room_id": "room-a",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeResult[queueEntryView](t, rec)

	rec = f.do(t, http.MethodPost, "/api/v1/queues/room/room-a/call-next", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	called := decodeResult[queueEntryView](t, rec)
	assert.Equal(t, created.ID, called.ID)
	assert.Equal(t, "Calling", called.Status)
	assert.NotNil(t, called.CalledAt)

	// Room is now drained.
	rec = f.do(t, http.MethodPost, "/api/v1/queues/room/room-a/call-next", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPositionAndEstimatedWait(t *testing.T) {
	f := newFixture(t)

	var firstID string
	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/queues", map[string]any{
			"patient_id": fmt.Sprintf("p%d", i), "room_id": "room-a",
		}, false)
		require.Equal(t, http.StatusCreated, rec.Code)
		if i == 0 {
			firstID = decodeResult[queueEntryView](t, rec).ID
		}
	}

	rec := f.do(t, http.MethodGet, "/api/v1/queues/"+firstID+"/position", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	pos := decodeResult[map[string]int](t, rec)
	assert.Equal(t, 1, pos["position"])

	rec = f.do(t, http.MethodGet, "/api/v1/queues/room/room-a/estimated-wait", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	wait := decodeResult[map[string]int](t, rec)
	assert.Equal(t, 3*service.MinutesPerPatient, wait["estimated_wait_minutes"])

	rec = f.do(t, http.MethodGet, "/api/v1/queues/room/room-a/next-ticket", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	next := decodeResult[map[string]int](t, rec)
	assert.Equal(t, 4, next["next_ticket"])
}

func TestPositionUnknownEntryReturnsZero(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/queues/no-such-entry/position", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	pos := decodeResult[map[string]int](t, rec)
	assert.Equal(t, 0, pos["position"])
}

func TestUpdateEntryStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/queues", map[string]any{
		"patient_id": "p1", "room_id": "room-a",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeResult[queueEntryView](t, rec)

	rec = f.do(t, http.MethodPatch, "/api/v1/queues/"+created.ID+"/served", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeResult[queueEntryView](t, rec)
	assert.Equal(t, "Served", updated.Status)
	assert.NotNil(t, updated.ServedAt)
}

func TestDeleteEntry(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/queues", map[string]any{
		"patient_id": "p1", "room_id": "room-a",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeResult[queueEntryView](t, rec)

	rec = f.do(t, http.MethodDelete, "/api/v1/queues/"+created.ID, nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/queues/"+created.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDayReportDownload(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/queues", map[string]any{
		"patient_id": "p1", "room_id": "room-a",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code)

	day := time.Now().UTC().Format("2006-01-02")
	rec = f.do(t, http.MethodGet, "/api/v1/queues/room/room-a/report?day="+day, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "admin", "password": "admin123",
	}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeResult[loginResponse](t, rec)
	assert.NotEmpty(t, res.Token)

	rec = f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "admin", "password": "wrong",
	}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPatientCRUDOverHTTP(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/patients", map[string]any{
		"name":       "Maria Silva",
		"document":   "12345678900",
		"birth_date": "1990-05-01",
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Duplicate document is rejected.
	rec = f.do(t, http.MethodPost, "/api/v1/patients", map[string]any{
		"name":     "Other",
		"document": "12345678900",
	}, false)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/patients/document/12345678900", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Listing requires a token.
	rec = f.do(t, http.MethodGet, "/api/v1/patients", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/patients", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoomCRUDOverHTTP(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/rooms", map[string]any{
		"name": "Sala 1",
	}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/rooms", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/rooms/active", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Creation without a token is rejected.
	rec = f.do(t, http.MethodPost, "/api/v1/rooms", map[string]any{"name": "Sala 2"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

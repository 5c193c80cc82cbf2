package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"timeroom/internal/attendance"
	"timeroom/internal/attendance/service"
	"timeroom/internal/pipeline"
)

func newTestService(store attendance.Store) *service.Service {
	return service.New(store, 10*time.Second)
}

type stubCounter struct{ n int }

func (s stubCounter) SubscriberCount() int { return s.n }

type HandlerSuite struct {
	suite.Suite
	store     *attendance.InMemoryStore
	debouncer *pipeline.MemoryDebouncer
	router    chi.Router
}

func (s *HandlerSuite) SetupTest() {
	s.store = attendance.NewInMemoryStore()
	s.store.SeedLocation(attendance.Location{ID: 1, AntennaPort: 1, AreaName: "Server Room"})
	s.debouncer = pipeline.NewMemoryDebouncer(5 * time.Second)

	svc := newTestService(s.store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, s.debouncer, stubCounter{n: 3}, logger)

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *HandlerSuite) request(method, target string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestStatus() {
	rec := s.request(http.MethodGet, "/api/status", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("ok", body["status"])
	s.Equal(float64(3), body["subscribers"])
}

func (s *HandlerSuite) TestRegisterEmployee() {
	rec := s.request(http.MethodPost, "/api/employees/register",
		`{"epc_code":"aaaa0001","full_name":"Jordan Lee","office":"HQ"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	var employee attendance.Employee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &employee))
	s.Equal("AAAA0001", employee.EPCCode, "EPC is stored normalized")
	s.NotEmpty(employee.ID)

	rec = s.request(http.MethodGet, "/api/employees", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var employees []attendance.Employee
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &employees))
	s.Len(employees, 1)
}

func (s *HandlerSuite) TestRegisterEmployeeValidation() {
	rec := s.request(http.MethodPost, "/api/employees/register", `{"office":"HQ"}`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/api/employees/register", `{not json`)
	s.Require().Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRegisterEmployeeDuplicateEPC() {
	body := `{"epc_code":"AAAA0001","full_name":"Jordan Lee"}`
	rec := s.request(http.MethodPost, "/api/employees/register", body)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.request(http.MethodPost, "/api/employees/register", body)
	s.Require().Equal(http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestActiveFilterValidation() {
	rec := s.request(http.MethodGet, "/api/active?location_id=abc", "")
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodGet, "/api/active?location_id=1", "")
	s.Require().Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestLogsAndStats() {
	employee, err := s.store.CreateEmployee(context.Background(), attendance.Employee{
		EPCCode: "AAAA0001", FullName: "Jordan Lee",
	})
	s.Require().NoError(err)
	_, err = s.store.CreateLog(context.Background(), employee.ID, 1, time.Now())
	s.Require().NoError(err)

	rec := s.request(http.MethodGet, "/api/logs?limit=10", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var entries []attendance.LogEntry
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &entries))
	s.Len(entries, 1)

	rec = s.request(http.MethodGet, "/api/stats", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var stats attendance.Stats
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &stats))
	s.Equal(1, stats.ActiveNow)
}

func (s *HandlerSuite) TestClearResetsDebounce() {
	ctx := context.Background()
	ok, _ := s.debouncer.Accept(ctx, "AAAA0001", 1, time.Now())
	s.Require().True(ok)

	rec := s.request(http.MethodPost, "/api/clear", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	ok, _ = s.debouncer.Accept(ctx, "AAAA0001", 1, time.Now())
	s.True(ok, "clear reopens every debounce window")
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func TestHandleLogsLimitValidation(t *testing.T) {
	store := attendance.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(newTestService(store), pipeline.NewMemoryDebouncer(time.Second), stubCounter{}, logger)

	router := chi.NewRouter()
	h.Register(router)

	req := httptest.NewRequest(http.MethodGet, "/api/logs?limit=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
}

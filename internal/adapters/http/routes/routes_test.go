package routes_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ministry-assetloan/internal/adapters/cache"
	"ministry-assetloan/internal/adapters/http/middleware"
	"ministry-assetloan/internal/adapters/http/routes"
	"ministry-assetloan/internal/adapters/persistence/models"
	"ministry-assetloan/internal/adapters/persistence/repositories"
	"ministry-assetloan/internal/adapters/persistence/testutil"
	"ministry-assetloan/internal/config"
	"ministry-assetloan/internal/core/domain"
	"ministry-assetloan/internal/core/services"
	"ministry-assetloan/internal/pkg/clock"
	"ministry-assetloan/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Details map[string]any  `json:"details"`
}

type testServer struct {
	app   *fiber.App
	cfg   *config.Config
	repos *repositories.Repos
	svc   *services.Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppMode:  "dev",
		JWT:      config.JWTConfig{Secret: "route-test-secret", AccessTokenMins: 15},
		Workflow: config.WorkflowConfig{DashboardCacheTTL: time.Minute},
	}
	repos := repositories.NewRepositories(testutil.NewDB(t))
	svc := services.NewServices(services.Deps{
		Repos:  repos,
		Config: cfg,
		SLA:    domain.DefaultSLATable(),
		Clock:  clock.Fake(time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)),
		Cache:  cache.NewMemoryStore(),
	})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	routes.Setup(app, cfg, svc, nil)
	return &testServer{app: app, cfg: cfg, repos: repos, svc: svc}
}

// token creates an account with role and returns a bearer token for it
func (s *testServer) token(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@ministry.go.th",
		Password: "x",
		Role:     string(role),
		FullName: strings.ToUpper(username),
		IsActive: true,
	}
	require.NoError(t, s.repos.User.Create(context.Background(), u))
	tok, err := jwt.GenerateAccessToken(u.ID, u.Username, u.FullName, u.Role, s.cfg.JWT.Secret, 15)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) asset(t *testing.T, tag string) uint {
	t.Helper()
	a, err := s.svc.Ledger.Register(context.Background(), &services.RegisterAssetInput{Tag: tag, Name: "Camera " + tag})
	require.NoError(t, err)
	return a.ID
}

type loanView struct {
	ID                uint   `json:"id"`
	ApplicationNumber string `json:"application_number"`
	Status            string `json:"status"`
	Overdue           bool   `json:"overdue"`
}

func guestSubmission(assetID uint) map[string]any {
	return map[string]any{
		"applicant_name":     "Malee",
		"applicant_email":    "malee@example.org",
		"applicant_phone":    "0899999999",
		"applicant_division": "Public Relations",
		"purpose":            "Press event",
		"loan_start_date":    "2026-01-13",
		"loan_end_date":      "2026-01-15",
		"items":              []map[string]any{{"asset_id": assetID, "quantity": 1}},
	}
}

func TestLoanRoutes_GuestSubmitAndTrack(t *testing.T) {
	s := newTestServer(t)
	assetID := s.asset(t, "CAM-1")

	code, env := s.do(t, http.MethodPost, "/api/v1/loans", "", guestSubmission(assetID))
	require.Equal(t, http.StatusCreated, code, env.Error)

	var created loanView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "submitted", created.Status)

	path := fmt.Sprintf("/api/v1/loans/track?number=%s&email=%s", created.ApplicationNumber, "MALEE@example.org")
	code, env = s.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, code)
	var tracked loanView
	require.NoError(t, json.Unmarshal(env.Data, &tracked))
	assert.Equal(t, created.ID, tracked.ID)

	code, _ = s.do(t, http.MethodGet, "/api/v1/loans/track?number="+created.ApplicationNumber+"&email=x@y.z", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLoanRoutes_ValidationIs422(t *testing.T) {
	s := newTestServer(t)
	assetID := s.asset(t, "CAM-1")

	body := guestSubmission(assetID)
	body["loan_start_date"] = "2026-01-12"

	code, env := s.do(t, http.MethodPost, "/api/v1/loans", "", body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "loan_start_date", env.Details["field"])

	body = guestSubmission(assetID)
	body["loan_end_date"] = "15/01/2026"
	code, env = s.do(t, http.MethodPost, "/api/v1/loans", "", body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "loan_end_date", env.Details["field"])
}

func TestLoanRoutes_RoleChecks(t *testing.T) {
	s := newTestServer(t)
	employee := s.token(t, "somsak", domain.RoleUser)
	approver := s.token(t, "director", domain.RoleApprover)

	code, env := s.do(t, http.MethodPost, "/api/v1/loans", employee, guestSubmission(s.asset(t, "CAM-1")))
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created loanView
	require.NoError(t, json.Unmarshal(env.Data, &created))

	approve := fmt.Sprintf("/api/v1/loans/%d/approve", created.ID)

	code, _ = s.do(t, http.MethodPut, approve, "", map[string]string{"remarks": "ok"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPut, approve, employee, map[string]string{"remarks": "ok"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodPut, approve, approver, map[string]string{"remarks": "ok"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var approved loanView
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	assert.Equal(t, "approved", approved.Status)

	// approving twice is a state conflict
	code, env = s.do(t, http.MethodPut, approve, approver, map[string]string{"remarks": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "this action is not available in the current state", env.Error)
	assert.Equal(t, "approved", env.Details["current_status"])
	assert.Equal(t, "approve", env.Details["operation"])

	code, env = s.do(t, http.MethodGet, "/api/v1/loans/my", employee, nil)
	assert.Equal(t, http.StatusOK, code, env.Error)
}

func TestLoanRoutes_IssueConflictReportsAsset(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, "keeper", domain.RoleStaff)
	approver := s.token(t, "director", domain.RoleApprover)
	assetID := s.asset(t, "CAM-1")

	var ids []uint
	for i := 0; i < 2; i++ {
		code, env := s.do(t, http.MethodPost, "/api/v1/loans", "", guestSubmission(assetID))
		require.Equal(t, http.StatusCreated, code, env.Error)
		var v loanView
		require.NoError(t, json.Unmarshal(env.Data, &v))
		ids = append(ids, v.ID)

		code, env = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/loans/%d/approve", v.ID), approver, nil)
		require.Equal(t, http.StatusOK, code, env.Error)
	}

	code, env := s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/loans/%d/issue", ids[0]), staff, nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/loans/%d/issue", ids[1]), staff, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "one or more items could not be issued", env.Error)
	assert.Equal(t, "CAM-1", env.Details["tag"])
	assert.EqualValues(t, assetID, env.Details["asset_id"])
}

func TestTicketRoutes_CreateAndBreaches(t *testing.T) {
	s := newTestServer(t)
	employee := s.token(t, "somsak", domain.RoleUser)
	staff := s.token(t, "helpdesk", domain.RoleStaff)

	code, env := s.do(t, http.MethodPost, "/api/v1/tickets", employee, map[string]string{
		"subject":     "Printer jam",
		"description": "Floor 2 printer jams on every job",
		"category":    "hardware",
		"priority":    "low",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tickets/breaches", employee, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/tickets/breaches", staff, nil)
	assert.Equal(t, http.StatusOK, code, env.Error)
}

func TestRoutes_NoStoreOnAPI(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestUserRoutes_FilterByRole(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "root", domain.RoleAdmin)
	s.token(t, "helpdesk1", domain.RoleStaff)
	s.token(t, "helpdesk2", domain.RoleStaff)
	s.token(t, "somsak", domain.RoleUser)

	code, env := s.do(t, http.MethodGet, "/api/v1/users?role=staff", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	var page struct {
		Data []struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 2, page.Meta.Total)
	for _, u := range page.Data {
		assert.Equal(t, "STAFF", u.Role)
	}

	code, env = s.do(t, http.MethodGet, "/api/v1/users?role=janitor", admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "role", env.Details["field"])

	code, _ = s.do(t, http.MethodGet, "/api/v1/users", s.token(t, "keeper", domain.RoleStaff), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestLoanRoutes_MalformedOptionalBodyIs400(t *testing.T) {
	s := newTestServer(t)
	approver := s.token(t, "director", domain.RoleApprover)

	code, env := s.do(t, http.MethodPost, "/api/v1/loans", "", guestSubmission(s.asset(t, "CAM-1")))
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created loanView
	require.NoError(t, json.Unmarshal(env.Data, &created))

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/loans/%d/approve", created.ID), strings.NewReader(`{"remarks":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+approver)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got, err := s.svc.Loans.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", got.Status)

	// no body at all is still accepted
	code, env = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/loans/%d/approve", created.ID), approver, nil)
	assert.Equal(t, http.StatusOK, code, env.Error)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zbx-import/internal/app"
	"zbx-import/internal/config"
	internaldb "zbx-import/internal/db"
	"zbx-import/internal/declarative"
	"zbx-import/internal/domain"
	"zbx-import/internal/middleware"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	token string
}

func setupTestServer(t *testing.T, svc Service, rl middleware.RateLimitConfig) *testServer {
	t.Helper()

	validator, err := middleware.NewTokenValidator(testSecret, "")
	require.NoError(t, err)
	if rl.RequestsPerSecond == 0 {
		rl = middleware.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	router := NewRouter(ctx, RouterConfig{
		Handler:        NewHandler(svc, nil),
		Validator:      validator,
		RateLimit:      rl,
		AllowedOrigins: []string{"*"},
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &testServer{Server: srv, token: token}
}

func newStoreApp(t *testing.T) *app.App {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	a, err := app.New(app.Deps{
		Cfg: &config.Config{
			Backend:        config.BackendSQLite,
			DefaultOptions: domain.ImportOptions{CreateMissingTemplates: true, CreateMissingLinkage: true},
		},
		WriteDB: writeDB,
		ReadDB:  readDB,
	})
	require.NoError(t, err)
	return a
}

func (s *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type planResponse struct {
	RunID   string `json:"run_id"`
	DryRun  bool   `json:"dry_run"`
	Actions []struct {
		Iteration int    `json:"iteration"`
		Operation string `json:"operation"`
		Template  string `json:"template"`
	} `json:"actions"`
	Errors  []declarative.PlanError `json:"errors"`
	Summary declarative.PlanSummary `json:"summary"`
}

const linuxDoc = `apiVersion: zabbix-import/v1
kind: TemplateList
templates:
  - template: Template OS Linux
    groups: [{name: Templates}]
    templates: [{name: Template App Base}]
  - template: Template App Base
    groups: [{name: Templates}]
`

const cycleDoc = `{"apiVersion":"zabbix-import/v1","kind":"TemplateList","templates":[
  {"template":"A","groups":[{"name":"Templates"}],"templates":[{"name":"B"}]},
  {"template":"B","groups":[{"name":"Templates"}],"templates":[{"name":"A"}]}
]}`

func TestHealth_NoAuth(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestV1_RequiresToken(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})

	resp, err := http.Get(srv.URL + "/v1/templates")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestImportTemplates_EndToEnd(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})

	resp := srv.do(t, http.MethodPost, "/v1/groups", `{"name":"Templates"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/v1/imports/templates/plan", linuxDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan planResponse
	decodeBody(t, resp, &plan)
	assert.True(t, plan.DryRun)
	assert.Equal(t, 2, plan.Summary.Creates)

	resp = srv.do(t, http.MethodGet, "/v1/templates", "")
	var empty listResponse[domain.Template]
	decodeBody(t, resp, &empty)
	assert.Empty(t, empty.Data)

	resp = srv.do(t, http.MethodPost, "/v1/imports/templates", linuxDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	plan = planResponse{}
	decodeBody(t, resp, &plan)
	assert.False(t, plan.DryRun)
	assert.Equal(t, 2, plan.Summary.Iterations)
	require.Len(t, plan.Actions, 2)
	assert.Equal(t, "Template App Base", plan.Actions[0].Template)
	assert.Equal(t, 1, plan.Actions[0].Iteration)
	assert.Equal(t, "Template OS Linux", plan.Actions[1].Template)
	assert.Equal(t, 2, plan.Actions[1].Iteration)

	resp = srv.do(t, http.MethodGet, "/v1/templates", "")
	var list listResponse[domain.Template]
	decodeBody(t, resp, &list)
	require.Len(t, list.Data, 2)
	assert.Equal(t, []domain.TemplateName{"Template App Base"}, list.Data[1].Parents)
}

func TestImportTemplates_UpdateViaQuery(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})
	srv.do(t, http.MethodPost, "/v1/groups", `{"name":"Templates"}`)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, "/v1/imports/templates", linuxDoc).StatusCode)

	resp := srv.do(t, http.MethodPost, "/v1/imports/templates?update_existing=true&link_templates=true", linuxDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan planResponse
	decodeBody(t, resp, &plan)
	assert.Equal(t, 2, plan.Summary.Updates)
	assert.Zero(t, plan.Summary.Creates)

	resp = srv.do(t, http.MethodPost, "/v1/imports/templates?create_missing=maybe", linuxDoc)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportTemplates_QueryOverridesOneRule(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})
	srv.do(t, http.MethodPost, "/v1/groups", `{"name":"Templates"}`)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, "/v1/imports/templates", linuxDoc).StatusCode)

	doc := `apiVersion: zabbix-import/v1
kind: TemplateList
rules:
  templates:
    createMissing: true
  templateLinkage:
    createMissing: true
templates:
  - template: Template App Base
    groups: [{name: Templates}]
  - template: Template App SSH
    groups: [{name: Templates}]
    templates: [{name: Template App Base}]
`
	resp := srv.do(t, http.MethodPost, "/v1/imports/templates?update_existing=true", doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var plan planResponse
	decodeBody(t, resp, &plan)
	assert.Equal(t, 1, plan.Summary.Updates, "update_existing applies")
	assert.Equal(t, 1, plan.Summary.Creates, "the document's createMissing is kept")

	resp = srv.do(t, http.MethodGet, "/v1/templates", "")
	var list listResponse[domain.Template]
	decodeBody(t, resp, &list)
	require.Len(t, list.Data, 3)
	assert.Equal(t, domain.TemplateName("Template App SSH"), list.Data[1].Name)
	assert.Equal(t, []domain.TemplateName{"Template App Base"}, list.Data[1].Parents, "the document's linkage is kept")
}

func TestImportTemplates_Cycle(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})
	srv.do(t, http.MethodPost, "/v1/groups", `{"name":"Templates"}`)

	resp := srv.do(t, http.MethodPost, "/v1/imports/templates", cycleDoc)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var plan planResponse
	decodeBody(t, resp, &plan)
	require.Len(t, plan.Errors, 1)
	assert.Equal(t, []string{"A", "B", "A"}, plan.Errors[0].Chain)
	assert.Empty(t, plan.Actions)
}

func TestImportTemplates_BadDocuments(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty body", body: "", want: http.StatusBadRequest},
		{name: "not yaml", body: "{{{", want: http.StatusBadRequest},
		{name: "wrong kind", body: "apiVersion: zabbix-import/v1\nkind: HostList\ntemplates: []\n", want: http.StatusBadRequest},
		{name: "group missing in store", body: linuxDoc, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := srv.do(t, http.MethodPost, "/v1/imports/templates", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCreateGroup_Errors(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{})

	assert.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/v1/groups", `{"name":"Linux servers"}`).StatusCode)
	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, "/v1/groups", `{"name":"Linux servers"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, "/v1/groups", `{"name":""}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, "/v1/groups", `{"nom":"x"}`).StatusCode)

	resp := srv.do(t, http.MethodGet, "/v1/groups", "")
	var list listResponse[domain.HostGroup]
	decodeBody(t, resp, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, domain.GroupName("Linux servers"), list.Data[0].Name)
}

func TestRateLimit(t *testing.T) {
	srv := setupTestServer(t, newStoreApp(t), middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/v1/groups", "").StatusCode)
	}
	resp := srv.do(t, http.MethodGet, "/v1/groups", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

type errService struct {
	err error
}

func (s errService) Run(context.Context, app.RunRequest) (*declarative.Plan, error) {
	return &declarative.Plan{Errors: []declarative.PlanError{{Message: s.err.Error()}}}, s.err
}

func (errService) Options(*declarative.TemplateListDoc) (domain.ImportOptions, []string) {
	return domain.ImportOptions{}, nil
}

func (s errService) ListTemplates(context.Context) ([]domain.Template, error) { return nil, s.err }
func (s errService) ListGroups(context.Context) ([]domain.HostGroup, error)   { return nil, s.err }
func (s errService) CreateGroup(context.Context, domain.GroupName) (*domain.HostGroup, error) {
	return nil, s.err
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrValidation("bad"), http.StatusBadRequest},
		{domain.ErrUnresolvedGroup("Templates", "A"), http.StatusBadRequest},
		{&domain.CycleError{Chain: []domain.TemplateName{"A", "A"}}, http.StatusUnprocessableEntity},
		{domain.ErrConflict("dup"), http.StatusConflict},
		{domain.ErrNotFound("gone"), http.StatusNotFound},
		{fmt.Errorf("iteration 2: %w", domain.ErrRemote("create", errors.New("timeout"))), http.StatusBadGateway},
		{app.ErrNoStore, http.StatusNotImplemented},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := setupTestServer(t, errService{err: tt.err}, middleware.RateLimitConfig{})

			resp := srv.do(t, http.MethodPost, "/v1/imports/templates", linuxDoc)
			assert.Equal(t, tt.want, resp.StatusCode)

			resp = srv.do(t, http.MethodGet, "/v1/templates", "")
			assert.Equal(t, tt.want, resp.StatusCode)
			var body errorBody
			decodeBody(t, resp, &body)
			assert.Equal(t, tt.want, body.Code)
			assert.Equal(t, tt.err.Error(), body.Message)
		})
	}
}

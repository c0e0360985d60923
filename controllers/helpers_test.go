package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/config"
	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/services"
	"github.com/kendall-kelly/stitchwise-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

type apiEnv struct {
	t        *testing.T
	db       *gorm.DB
	router   *gin.Engine
	customer models.User
	tailor   models.User
	stranger models.User
	admin    models.User
}

// newAPIEnv wires the full route table on a fresh database. Requests pick
// their user through the X-Test-User header.
func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	rules, err := config.LoadBadgeRules("")
	require.NoError(t, err)
	ledger := services.NewReputationLedger(db, services.NewBadgeEvaluator(rules), services.NewReviewStore(), logging.Discard())
	services.SetOrderService(services.NewOrderService(db, ledger, services.NewMemoryOrderLocker(time.Second), services.StatusPolicy{}, logging.Discard()))

	router := setupTestRouter()
	RegisterRoutes(router.Group("/api/v1"), testutil.HeaderAuthMiddleware())

	return &apiEnv{
		t:        t,
		db:       db,
		router:   router,
		customer: testutil.CreateUser(t, db, "auth0|customer", models.RoleCustomer),
		tailor:   testutil.CreateUser(t, db, "auth0|tailor", models.RoleTailor),
		stranger: testutil.CreateUser(t, db, "auth0|stranger", models.RoleCustomer),
		admin:    testutil.CreateUser(t, db, "auth0|admin", models.RoleAdmin),
	}
}

type apiResponse struct {
	Code    int
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// decode unmarshals the data field into v
func (r apiResponse) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), "data: %s", string(r.Data))
}

// do sends a JSON request as user. A zero user sends no identity.
func (e *apiEnv) do(method, path string, user models.User, body any) apiResponse {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, user)
}

func (e *apiEnv) serve(req *http.Request, user models.User) apiResponse {
	e.t.Helper()

	if user.Auth0ID != "" {
		req.Header.Set("X-Test-User", user.Auth0ID)
		req.Header.Set("X-Test-Role", string(user.Role))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	resp := apiResponse{Code: w.Code}
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return resp
}

// createOrder opens an order through the API and returns it
func (e *apiEnv) createOrder() models.Order {
	e.t.Helper()

	resp := e.do(http.MethodPost, "/api/v1/orders", e.customer, map[string]any{
		"tailor_id":    e.tailor.ID,
		"service_type": "custom_tailoring",
		"garment_type": "suit",
		"quantity":     2,
		"base_price":   4000,
	})
	require.Equal(e.t, http.StatusCreated, resp.Code, "error: %+v", resp.Error)

	var order models.Order
	resp.decode(e.t, &order)
	return order
}

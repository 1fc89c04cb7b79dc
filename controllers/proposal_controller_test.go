package controllers

import (
	"PinguinGuard/clock"
	"PinguinGuard/models"
	"PinguinGuard/repositories/memory"
	"PinguinGuard/services"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	momUID   = "mom-uid"
	dadUID   = "dad-uid"
	childUID = "child-uid"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	router *gin.Engine
	clock  *clock.FakeClock
	store  *memory.Store
}

// Вместо проверки токена тест передает пользователя заголовками.
func fakeAuth(c *gin.Context) {
	c.Set("firebase_uid", c.GetHeader("X-User"))
	c.Set("user_type", c.GetHeader("X-User-Type"))
	c.Next()
}

func newTestAPI(t *testing.T, custody models.CustodyType) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := clock.Fake(time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC))
	store := memory.NewStore()
	directory := memory.NewDirectory(models.ChildRecord{
		ChildID:  childUID,
		FamilyID: "family-1",
		Guardians: []models.GuardianRef{
			{UID: momUID, Permissions: models.PermissionFull},
			{UID: dadUID, Permissions: models.PermissionFull},
		},
		CustodyType: custody,
	})

	svc := services.NewProposalService(store, directory, fake)
	seq := 0
	svc.NewID = func() string {
		seq++
		return fmt.Sprintf("proposal-%d", seq)
	}
	SetProposalService(svc)
	SetPermissionGuard(services.NewPermissionChangeGuard(directory, store.Audit(), fake))

	r := gin.New()
	api := r.Group("/", fakeAuth)
	api.POST("/proposals", CreateProposal)
	api.GET("/proposals/:id", GetProposal)
	api.GET("/proposals/child/:child_id", ListProposals)
	api.POST("/proposals/:id/respond", RespondToProposal)
	api.POST("/proposals/:id/cancel-cooling", CancelCoolingPeriod)
	api.POST("/proposals/:id/sign", SignProposal)
	api.POST("/proposals/:id/dispute", DisputeProposal)
	api.POST("/proposals/:id/resolve-dispute", ResolveDispute)
	api.POST("/permissions/check", CheckPermissionChange)
	api.PUT("/permissions", UpdateGuardianPermission)
	api.GET("/children/:child_id/settings", GetChildSettings)

	return &testAPI{router: r, clock: fake, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, user, userType string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", user)
	req.Header.Set("X-User-Type", userType)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decodeProposal(t *testing.T, env envelope) models.ChangeProposal {
	t.Helper()
	var p models.ChangeProposal
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func TestProposalLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t, models.CustodyShared)

	status, env := api.do(t, http.MethodPost, "/proposals", momUID, "parent", gin.H{
		"child_id":    childUID,
		"change_type": "monitoring_interval",
		"value":       60,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	var created services.CreateProposalResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotNil(t, created.Proposal)
	assert.Equal(t, models.StatusPending, created.Proposal.Status)
	id := created.Proposal.ID

	// автор не может ответить на свое предложение
	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/respond", momUID, "parent", gin.H{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(services.CodePermissionDenied), env.Code)

	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/respond", dadUID, "parent", gin.H{"decision": "approve"})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, models.StatusCoolingInProgress, decodeProposal(t, env).Status)

	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/dispute", dadUID, "parent", gin.H{"reason": "need to talk"})
	require.Equal(t, http.StatusOK, status, env.Error)
	require.NotNil(t, decodeProposal(t, env).Dispute)

	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/resolve-dispute", momUID, "parent", nil)
	require.Equal(t, http.StatusOK, status, env.Error)

	api.clock.Advance(models.CoolingPeriodLength)

	status, env = api.do(t, http.MethodGet, "/proposals/"+id, childUID, "child", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, models.StatusActive, decodeProposal(t, env).Status)

	status, env = api.do(t, http.MethodGet, "/children/"+childUID+"/settings", momUID, "parent", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	var settings models.ChildSettings
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, 60, settings.MonitoringIntervalMinutes)

	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/cancel-cooling", dadUID, "parent", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(services.CodeFailedPrecondition), env.Code)

	status, env = api.do(t, http.MethodGet, "/proposals/child/"+childUID, momUID, "parent", nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.ChangeProposal
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestDisputeBody(t *testing.T) {
	api := newTestAPI(t, models.CustodyShared)
	status, env := api.do(t, http.MethodPost, "/proposals", momUID, "parent", gin.H{
		"child_id":    childUID,
		"change_type": "monitoring_interval",
		"value":       60,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var created services.CreateProposalResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created.Proposal.ID
	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/respond", dadUID, "parent", gin.H{"decision": "approve"})
	require.Equal(t, http.StatusOK, status, env.Error)

	req := httptest.NewRequest(http.MethodPost, "/proposals/"+id+"/dispute", bytes.NewBufferString(`{"reason": `))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", dadUID)
	req.Header.Set("X-User-Type", "parent")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	status, env = api.do(t, http.MethodGet, "/proposals/"+id, momUID, "parent", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Nil(t, decodeProposal(t, env).Dispute)

	// пустое тело допустимо
	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/dispute", dadUID, "parent", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	dispute := decodeProposal(t, env).Dispute
	require.NotNil(t, dispute)
	assert.Empty(t, dispute.Reason)
}

func TestEmergencyChangeReturnsApplied(t *testing.T) {
	api := newTestAPI(t, models.CustodyShared)

	status, env := api.do(t, http.MethodPost, "/proposals", momUID, "parent", gin.H{
		"child_id":    childUID,
		"change_type": "monitoring_interval",
		"value":       15,
	})
	require.Equal(t, http.StatusOK, status, env.Error)

	var result services.CreateProposalResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Applied)
	assert.Nil(t, result.Proposal)
}

func TestAgreementSigningUsesTokenUserType(t *testing.T) {
	api := newTestAPI(t, models.CustodyShared)

	status, env := api.do(t, http.MethodPost, "/proposals", momUID, "parent", gin.H{
		"child_id":    childUID,
		"change_type": "agreement_screen_time",
		"value":       90,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	var created services.CreateProposalResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created.Proposal.ID

	status, _ = api.do(t, http.MethodPost, "/proposals/"+id+"/respond", dadUID, "parent", gin.H{"decision": "approve"})
	require.Equal(t, http.StatusOK, status)

	confirm := gin.H{"confirmation": services.ConfirmationPhrase}

	// ребенок подписывает последним
	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/sign", childUID, "child", confirm)
	assert.Equal(t, http.StatusConflict, status, env.Error)

	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/sign", momUID, "parent", gin.H{"confirmation": "i agree"})
	assert.Equal(t, http.StatusBadRequest, status, env.Error)

	for _, uid := range []string{momUID, dadUID} {
		status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/sign", uid, "parent", confirm)
		require.Equal(t, http.StatusOK, status, env.Error)
	}
	status, env = api.do(t, http.MethodPost, "/proposals/"+id+"/sign", childUID, "child", confirm)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, models.StatusActive, decodeProposal(t, env).Status)
}

func TestProposalErrors(t *testing.T) {
	api := newTestAPI(t, models.CustodyShared)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		status int
	}{
		{"unknown proposal", http.MethodGet, "/proposals/missing", momUID, nil, http.StatusNotFound},
		{"unknown change type", http.MethodPost, "/proposals", momUID, gin.H{"child_id": childUID, "change_type": "wifi", "value": 1}, http.StatusBadRequest},
		{"stranger", http.MethodPost, "/proposals", "stranger", gin.H{"child_id": childUID, "change_type": "monitoring_interval", "value": 60}, http.StatusForbidden},
		{"respond without decision", http.MethodPost, "/proposals/proposal-1/respond", dadUID, gin.H{}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/proposals", momUID, "not an object", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(t, tt.method, tt.path, tt.user, "parent", tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, env.Success)
		})
	}
}

func TestUpdateGuardianPermissionBlockedUnderSharedCustody(t *testing.T) {
	api := newTestAPI(t, models.CustodyShared)
	body := gin.H{"child_id": childUID, "target_guardian": dadUID, "permissions": "readonly"}

	status, env := api.do(t, http.MethodPost, "/permissions/check", momUID, "parent", body)
	require.Equal(t, http.StatusOK, status)
	var decision services.PermissionDecision
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, services.ReasonPermissionDowngrade, decision.Reason)

	status, env = api.do(t, http.MethodPut, "/permissions", momUID, "parent", body)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)
	assert.Len(t, api.store.BlockedAttempts(), 2)
}

func TestUpdateGuardianPermissionAllowedWithoutCustodyProtection(t *testing.T) {
	api := newTestAPI(t, models.CustodyNone)

	status, env := api.do(t, http.MethodPut, "/permissions", momUID, "parent",
		gin.H{"child_id": childUID, "target_guardian": dadUID, "permissions": "readonly"})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.True(t, env.Success)
	assert.Empty(t, api.store.BlockedAttempts())
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/boom", func(c *gin.Context) {
		respondError(c, services.WrapInternal("load proposal", fmt.Errorf("connection refused")))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

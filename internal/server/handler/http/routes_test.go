package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/formrelay/internal/client/form"
	"github.com/atinyakov/formrelay/internal/client/submit"
	"github.com/atinyakov/formrelay/internal/models"
	"github.com/atinyakov/formrelay/internal/repository"
	handler "github.com/atinyakov/formrelay/internal/server/handler/http"
	"github.com/atinyakov/formrelay/internal/service"
)

const formOrigin = "https://forms.example.org"

// stubEndpoint runs the full stub router over an in-memory delivery log.
type stubEndpoint struct {
	server *httptest.Server
	repo   *repository.MemoryDeliveryRepository
}

func newStubEndpoint(t *testing.T, failPost bool, allowedOrigins ...string) *stubEndpoint {
	t.Helper()
	repo := repository.NewMemoryDeliveryRepository()
	stub := &handler.StubHandler{
		StubService: service.NewStubService(repo),
		FailPost:    failPost,
		Log:         zap.NewNop(),
	}
	srv := httptest.NewServer(handler.NewRouter(stub, allowedOrigins, zap.NewNop()))
	t.Cleanup(srv.Close)
	return &stubEndpoint{server: srv, repo: repo}
}

// deliveries returns the recorded deliveries oldest first.
func (e *stubEndpoint) deliveries(t *testing.T) []models.Delivery {
	t.Helper()
	recent, err := e.repo.List(context.Background(), "")
	require.NoError(t, err)
	out := make([]models.Delivery, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		out = append(out, recent[i])
	}
	return out
}

func newHandler(t *testing.T, endpoint string, cfg submit.Config) form.Handler {
	t.Helper()
	cfg.Endpoint = endpoint
	s, err := submit.New(cfg, &http.Client{}, zap.NewNop())
	require.NoError(t, err)
	return form.NewSubmitHandler(s, zap.NewNop())
}

var signup = form.Event{
	Action: models.ActionSignup,
	Fields: map[string]string{"name": "Ada", "email": "ada@example.com", "password": "hunter2"},
}

func TestEndToEnd_AllowedOriginReadsPrimary(t *testing.T) {
	ep := newStubEndpoint(t, false, formOrigin)
	h := newHandler(t, ep.server.URL+"/exec", submit.Config{Origin: formOrigin, Fallback: true})

	out := h(context.Background(), signup)

	assert.Equal(t, form.Outcome{Message: "Signup successful!", Treatment: form.TreatmentSuccess, ResetForm: true}, out)
	got := ep.deliveries(t)
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPost, got[0].Method)
	assert.Equal(t, "signup", got[0].Action)
	assert.Equal(t, "[redacted]", got[0].Fields["password"])
	assert.NotEmpty(t, got[0].SubmissionID)
}

func TestEndToEnd_CrossOriginFallsBack(t *testing.T) {
	ep := newStubEndpoint(t, false, "https://other.example.org")
	h := newHandler(t, ep.server.URL+"/exec", submit.Config{Origin: formOrigin, Fallback: true})

	out := h(context.Background(), signup)

	assert.Equal(t, "Signup successful!", out.Message)
	assert.Equal(t, form.TreatmentSuccess, out.Treatment)

	got := ep.deliveries(t)
	require.Len(t, got, 3)
	assert.Equal(t, []string{http.MethodPost, http.MethodPost, http.MethodGet},
		[]string{got[0].Method, got[1].Method, got[2].Method})
	for _, d := range got[1:] {
		assert.Equal(t, got[0].SubmissionID, d.SubmissionID)
		assert.Equal(t, got[0].Action, d.Action)
		assert.Equal(t, got[0].Fields, d.Fields)
	}
}

func TestEndToEnd_FailingPostFallsBackToGet(t *testing.T) {
	ep := newStubEndpoint(t, true)
	h := newHandler(t, ep.server.URL+"/exec", submit.Config{Fallback: true})

	out := h(context.Background(), form.Event{
		Action: models.ActionSignin,
		Fields: map[string]string{"name": "Ada", "email": "ada@example.com", "password": "hunter2"},
	})

	assert.Equal(t, form.Outcome{
		Message:     "Signin successful!",
		Treatment:   form.TreatmentSuccess,
		ResetForm:   true,
		Acknowledge: "Welcome, Ada!",
	}, out)

	got := ep.deliveries(t)
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodGet, got[0].Method)
}

func TestEndToEnd_FailingPostWithoutFallback(t *testing.T) {
	ep := newStubEndpoint(t, true)
	h := newHandler(t, ep.server.URL+"/exec", submit.Config{})

	out := h(context.Background(), signup)

	assert.Equal(t, form.Outcome{Message: form.GenericErrorMessage, Treatment: form.TreatmentError}, out)
	assert.Empty(t, ep.deliveries(t))
}

func TestEndToEnd_UnreachableEndpoint(t *testing.T) {
	ep := newStubEndpoint(t, false)
	endpoint := ep.server.URL + "/exec"
	ep.server.Close()

	h := newHandler(t, endpoint, submit.Config{Fallback: true})
	out := h(context.Background(), signup)

	assert.Equal(t, form.GenericErrorMessage, out.Message)
	assert.Equal(t, form.TreatmentError, out.Treatment)
	assert.False(t, out.ResetForm)
}

func TestEndToEnd_UnknownActionReply(t *testing.T) {
	ep := newStubEndpoint(t, false)

	req, err := http.NewRequest(http.MethodGet, ep.server.URL+"/exec?action=logout", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", formOrigin)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var res models.SubmissionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, models.SubmissionResult{Status: models.StatusError, Message: "Unknown action"}, res)
}

func TestRouter_Preflight(t *testing.T) {
	ep := newStubEndpoint(t, false, formOrigin)

	req, err := http.NewRequest(http.MethodOptions, ep.server.URL+"/exec", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", formOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, formOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
}

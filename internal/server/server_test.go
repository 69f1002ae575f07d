package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stellar/go/strkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-deploy-wizard/internal/address"
	"token-deploy-wizard/internal/deploy/stub"
	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/fees"
	"token-deploy-wizard/internal/storage/memory"
	"token-deploy-wizard/internal/validation"
	"token-deploy-wizard/internal/wizard"
)

type testEnv struct {
	server   *Server
	http     *httptest.Server
	deployer *stub.Deployer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	deployer := stub.NewDeployer()
	srv := New(Options{
		Engine:          validation.NewEngine(address.Stellar{}),
		Calculator:      fees.DefaultCalculator(),
		Deployer:        deployer,
		Network:         address.NetworkStellar,
		DeploymentStore: memory.NewDeploymentStore(),
		EventStore:      memory.NewWizardEventStore(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		deployer.Release()
		srv.Shutdown(context.Background())
		ts.Close()
	})
	return &testEnv{server: srv, http: ts, deployer: deployer}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func (e *testEnv) snapshot(t *testing.T, method, path string, body interface{}, wantStatus int) wizard.Snapshot {
	t.Helper()
	resp, data := e.do(t, method, path, body)
	require.Equal(t, wantStatus, resp.StatusCode, "body: %s", data)
	var snap wizard.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	snap := e.snapshot(t, http.MethodPost, "/sessions", nil, http.StatusCreated)
	require.NotEmpty(t, snap.SessionID)
	return snap.SessionID
}

func validWallet(t *testing.T) string {
	t.Helper()
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i + 1)
	}
	w, err := strkey.Encode(strkey.VersionByteAccountID, payload)
	require.NoError(t, err)
	return w
}

func (e *testEnv) fillBasic(t *testing.T, id string) {
	t.Helper()
	e.snapshot(t, http.MethodPatch, "/sessions/"+id+"/draft", map[string]interface{}{
		"name":          "Test Coin",
		"symbol":        "tc",
		"decimals":      7,
		"initialSupply": "1000000",
		"adminWallet":   validWallet(t),
	}, http.StatusOK)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t)

	resp, body := env.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 1, status.Sessions)
	assert.Equal(t, address.NetworkStellar, status.Network)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	snap := env.snapshot(t, http.MethodGet, "/sessions/"+id, nil, http.StatusOK)
	assert.Equal(t, domain.StepBasicInfo, snap.Step)
	assert.Equal(t, domain.DeploymentIdle, snap.Deployment.State)

	resp, _ := env.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), ErrSessionNotFound.Error())
}

func TestPatchDraft_CoercesInput(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	snap := env.snapshot(t, http.MethodPatch, "/sessions/"+id+"/draft",
		`{"symbol":"abc","decimals":"7abc"}`, http.StatusOK)
	assert.Equal(t, "ABC", snap.Draft.Symbol)
	assert.Equal(t, 7, snap.Draft.Decimals)

	snap = env.snapshot(t, http.MethodPatch, "/sessions/"+id+"/draft",
		`{"decimals":"abc"}`, http.StatusOK)
	assert.Equal(t, 0, snap.Draft.Decimals)
	assert.Equal(t, "ABC", snap.Draft.Symbol, "untouched field kept")
}

func TestPatchDraft_BadJSON(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp, _ := env.do(t, http.MethodPatch, "/sessions/"+id+"/draft", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNext_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp, body := env.do(t, http.MethodPost, "/sessions/"+id+"/next", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, validation.MsgNameRequired, errResp.Errors[domain.FieldName])
	assert.Equal(t, validation.MsgWalletRequired, errResp.Errors[domain.FieldAdminWallet])

	snap := env.snapshot(t, http.MethodGet, "/sessions/"+id, nil, http.StatusOK)
	assert.Equal(t, domain.StepBasicInfo, snap.Step)
}

func TestInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	resp, _ := env.do(t, http.MethodPost, "/sessions/"+id+"/back", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/sessions/"+id+"/deploy", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPatchDraft_OnlyOnBasicInfo(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.fillBasic(t, id)
	env.snapshot(t, http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK)

	resp, _ := env.do(t, http.MethodPatch, "/sessions/"+id+"/draft", `{"name":"","decimals":99}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	snap := env.snapshot(t, http.MethodGet, "/sessions/"+id, nil, http.StatusOK)
	assert.Equal(t, domain.StepMetadata, snap.Step)
	assert.Equal(t, "Test Coin", snap.Draft.Name)
}

func TestDeployFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.fillBasic(t, id)

	env.snapshot(t, http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK)
	snap := env.snapshot(t, http.MethodPost, "/sessions/"+id+"/skip", nil, http.StatusOK)
	require.Equal(t, domain.StepReview, snap.Step)

	resp, body := env.do(t, http.MethodGet, "/sessions/"+id+"/fees", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var quote domain.FeeBreakdown
	require.NoError(t, json.Unmarshal(body, &quote))
	assert.Equal(t, "5", quote.TotalFee.String())

	env.deployer.Block()
	snap = env.snapshot(t, http.MethodPost, "/sessions/"+id+"/deploy", nil, http.StatusAccepted)
	assert.Equal(t, domain.DeploymentInFlight, snap.Deployment.State)

	// Second submit while in flight is rejected and nothing changes.
	resp, _ = env.do(t, http.MethodPost, "/sessions/"+id+"/deploy", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPatch, "/sessions/"+id+"/draft", `{"name":"Other"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	env.deployer.Release()
	wz, err := env.server.Session(id)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := wz.WaitDeploy(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DeploymentSucceeded, st.State)

	snap = env.snapshot(t, http.MethodGet, "/sessions/"+id, nil, http.StatusOK)
	assert.Equal(t, domain.DeploymentSucceeded, snap.Deployment.State)
	require.NotNil(t, snap.Deployment.Result)
	assert.NotEmpty(t, snap.Deployment.Result.TransactionID)
	assert.Equal(t, 1, env.deployer.Calls())

	resp, body = env.do(t, http.MethodGet, "/sessions/"+id+"/deployments", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []domain.DeploymentRecord
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, domain.DeploymentSucceeded, records[0].State)
	assert.Equal(t, "TC", records[0].Symbol)

	resp, body = env.do(t, http.MethodGet, "/sessions/"+id+"/events", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []domain.WizardEvent
	require.NoError(t, json.Unmarshal(body, &events))
	types := make(map[domain.EventType]bool)
	for _, e := range events {
		assert.Equal(t, id, e.SessionID)
		types[e.Type] = true
	}
	assert.True(t, types[domain.EventSessionStarted])
	assert.True(t, types[domain.EventMetadataSkipped])
	assert.True(t, types[domain.EventDeployStarted])

	snap = env.snapshot(t, http.MethodPost, "/sessions/"+id+"/reset", nil, http.StatusOK)
	assert.Equal(t, domain.StepBasicInfo, snap.Step)
	assert.Equal(t, domain.DeploymentIdle, snap.Deployment.State)
	assert.Equal(t, domain.TokenDraft{}, snap.Draft)
}

func TestDeployFailureMessage(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.fillBasic(t, id)
	env.snapshot(t, http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK)
	env.snapshot(t, http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK)

	env.deployer.FailNext(errString("insufficient balance"))
	env.snapshot(t, http.MethodPost, "/sessions/"+id+"/deploy", nil, http.StatusAccepted)

	wz, err := env.server.Session(id)
	require.NoError(t, err)
	st, err := wz.WaitDeploy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentFailed, st.State)
	assert.Equal(t, "insufficient balance", st.Message)
}

type errString string

func (e errString) Error() string { return string(e) }

func uploadImage(t *testing.T, env *testEnv, id, name, contentType string, data []byte) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, env.http.URL+"/sessions/"+id+"/metadata/image", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func TestMetadataImage(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)
	env.fillBasic(t, id)
	env.snapshot(t, http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK)

	env.snapshot(t, http.MethodPut, "/sessions/"+id+"/metadata/description",
		map[string]string{"description": "hello"}, http.StatusOK)

	// Rejected type leaves the draft untouched.
	resp, body := uploadImage(t, env, id, "notes.txt", "text/plain", []byte("plain"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "body: %s", body)
	assert.Contains(t, string(body), validation.MsgImageInvalidType)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	resp, body = uploadImage(t, env, id, "logo.png", "", png)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)
	var snap wizard.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.NotNil(t, snap.Draft.Metadata)
	require.NotNil(t, snap.Draft.Metadata.Image)
	assert.Equal(t, "logo.png", snap.Draft.Metadata.Image.Name)
	assert.Equal(t, "image/png", snap.Draft.Metadata.Image.MimeType)
	assert.Equal(t, int64(len(png)), snap.Draft.Metadata.Image.Size)
	assert.Equal(t, "hello", snap.Draft.Metadata.Description)
	assert.Empty(t, snap.Errors[domain.FieldImage])

	require.Eventually(t, func() bool {
		resp, body := env.do(t, http.MethodGet, "/sessions/"+id+"/preview", nil)
		return resp.StatusCode == http.StatusOK && strings.Contains(string(body), "data:image/png;base64,")
	}, 2*time.Second, 10*time.Millisecond)

	snap = env.snapshot(t, http.MethodDelete, "/sessions/"+id+"/metadata/image", nil, http.StatusOK)
	assert.Nil(t, snap.Draft.Metadata.Image)
	assert.Equal(t, "hello", snap.Draft.Metadata.Description)

	// Metadata fee now applies.
	snap = env.snapshot(t, http.MethodPost, "/sessions/"+id+"/next", nil, http.StatusOK)
	assert.Equal(t, domain.StepReview, snap.Step)
	assert.Equal(t, "8", snap.Fees.TotalFee.String())
}

func TestWebSocketPushesSnapshots(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t)

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first wizard.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, id, first.SessionID)

	sess, err := env.server.lookup(id)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sess.hub.size() == 1 }, 2*time.Second, 5*time.Millisecond)

	env.snapshot(t, http.MethodPatch, "/sessions/"+id+"/draft", `{"name":"Pushed"}`, http.StatusOK)

	var next wizard.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Greater(t, next.Version, first.Version)
	assert.Equal(t, "Pushed", next.Draft.Name)
}

func TestWebSocketUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/sessions/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

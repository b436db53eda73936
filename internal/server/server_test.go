package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"caseline/internal/config"
	"caseline/internal/db"
	"caseline/internal/domain"
	"caseline/internal/engine"
	"caseline/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("practice-1")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	ctx := context.Background()
	for _, a := range []domain.Actor{
		{ID: "dr-lee", Name: "Dr. Lee", Role: "owner"},
		{ID: "admin-1", Name: "Front Desk", Role: "admin"},
		{ID: "des-1", Name: "Designer One", Role: "staff", SubRole: "designer"},
		{ID: "rev-1", Name: "Reviewer One", Role: "staff", SubRole: "reviewer"},
	} {
		if _, err := e.Repo.UpsertActor(ctx, a); err != nil {
			t.Fatalf("seed actor %s: %v", a.ID, err)
		}
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{
		JWTSecret:              "test-secret",
		AllowLegacyActorHeader: true,
		DevLogin:               true,
	}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asActor(id string) map[string]string {
	return map[string]string{"X-Actor-Id": id}
}

func TestCaseLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{}, asActor("dr-lee"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create case: %d %s", res.StatusCode, string(data))
	}
	var created CaseResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal case: %v", err)
	}
	if created.Status != "pending_intake" {
		t.Fatalf("status = %s", created.Status)
	}
	caseURL := srv.URL + "/v0/cases/" + created.ID

	res, data = doJSON(t, client, http.MethodPost, caseURL+"/transition", map[string]any{"to": "pending_approval"}, asActor("dr-lee"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve intake: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, caseURL+"/assign", map[string]any{
		"designer_id": "des-1",
		"reviewer_id": "rev-1",
	}, asActor("admin-1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("assign: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, caseURL+"/transition", map[string]any{"to": "in_design"}, asActor("admin-1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("to in_design: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, caseURL+"/transition", map[string]any{"to": "pending_review"}, asActor("des-1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("to pending_review: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, caseURL+"/transition", map[string]any{
		"to":   "review_rejected",
		"note": "contact point open",
	}, asActor("rev-1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reject: %d %s", res.StatusCode, string(data))
	}
	var rejected CaseResponse
	if err := json.Unmarshal(data, &rejected); err != nil {
		t.Fatalf("unmarshal rejected: %v", err)
	}
	if rejected.Status != "in_design" {
		t.Fatalf("status after rejection = %s, want in_design", rejected.Status)
	}
	if rejected.RefinementCount != 1 {
		t.Fatalf("refinement count = %d, want 1", rejected.RefinementCount)
	}

	res, data = doJSON(t, client, http.MethodGet, caseURL+"/history", nil, asActor("admin-1"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("history: %d %s", res.StatusCode, string(data))
	}
	var history []AuditEntryResponse
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	// create, approve, assign, in_design, pending_review, rejection, rework
	if len(history) != 7 {
		t.Fatalf("history entries = %d, want 7: %s", len(history), string(data))
	}
}

func TestTransitionErrorStatuses(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{}, asActor("dr-lee"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create case: %d %s", res.StatusCode, string(data))
	}
	var created CaseResponse
	_ = json.Unmarshal(data, &created)
	caseURL := srv.URL + "/v0/cases/" + created.ID

	// no edge pending_intake -> approved
	res, data = doJSON(t, client, http.MethodPost, caseURL+"/transition", map[string]any{"to": "approved"}, asActor("dr-lee"))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid transition status = %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "invalid_transition" {
		t.Fatalf("code = %s, want invalid_transition", envelope.Error.Code)
	}
	if envelope.Error.Details["from"] != "pending_intake" {
		t.Fatalf("details = %v", envelope.Error.Details)
	}

	// staff cannot approve intake
	res, data = doJSON(t, client, http.MethodPost, caseURL+"/transition", map[string]any{"to": "pending_approval"}, asActor("des-1"))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("forbidden status = %d %s", res.StatusCode, string(data))
	}

	// unknown case
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases/nope", nil, asActor("admin-1"))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("not found status = %d %s", res.StatusCode, string(data))
	}
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no auth status = %d %s", res.StatusCode, string(data))
	}
	// legacy header with an unregistered actor is rejected
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases", nil, asActor("ghost"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown actor status = %d %s", res.StatusCode, string(data))
	}
	// health stays open
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", res.StatusCode)
	}
}

func TestDevLoginAndBearer(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"actor_id": "dr-lee",
		"role":     "owner",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login: %d %s", res.StatusCode, string(data))
	}
	var login DevLoginResponse
	if err := json.Unmarshal(data, &login); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if login.Token == "" {
		t.Fatal("empty token")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me: %d %s", res.StatusCode, string(data))
	}
	var me WhoAmIResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != "dr-lee" || me.Role != "owner" || me.Source != "jwt" {
		t.Fatalf("me = %+v", me)
	}
}

func TestAvailableTransitionsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/cases", map[string]any{}, asActor("dr-lee"))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create case: %d %s", res.StatusCode, string(data))
	}
	var created CaseResponse
	_ = json.Unmarshal(data, &created)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/cases/"+created.ID+"/transitions", nil, asActor("dr-lee"))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("transitions: %d %s", res.StatusCode, string(data))
	}
	var avail AvailableTransitionsResponse
	if err := json.Unmarshal(data, &avail); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]bool{"pending_approval": true, "cancelled": true}
	if len(avail.Next) != len(want) {
		t.Fatalf("next = %v", avail.Next)
	}
	for _, n := range avail.Next {
		if !want[n] {
			t.Fatalf("unexpected transition %s", n)
		}
	}
}

package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizroom/internal/app"
	"quizroom/internal/domain"
	"quizroom/internal/infra/memory"
)

func TestGameFlowOverHTTP(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	// create
	created := postJSON[app.CreatedGame](t, server, "/api/game/create", map[string]string{"quizKey": "quiz:test"}, "", http.StatusOK)
	if len(created.GameID) != 8 || created.HostToken == "" {
		t.Fatalf("bad create response: %+v", created)
	}

	// join
	joined := postJSON[app.JoinedPlayer](t, server, "/api/game/"+created.GameID+"/join", map[string]string{"name": "Alice"}, "", http.StatusOK)
	if joined.PlayerID == "" || joined.PlayerToken == "" {
		t.Fatalf("bad join response: %+v", joined)
	}

	// lobby state
	st := getState(t, server, created.GameID)
	if st.Phase != domain.PhaseLobby || st.PlayerCount != 1 {
		t.Fatalf("expected lobby with one player, got %+v", st)
	}

	// host starts
	postJSON[map[string]bool](t, server, "/api/game/"+created.GameID+"/start", nil, created.HostToken, http.StatusOK)

	st = getState(t, server, created.GameID)
	if st.Phase != domain.PhaseQuestion || st.QuestionIndex != 0 {
		t.Fatalf("expected question 0, got %+v", st)
	}
	if st.Question == nil || len(st.Question.Choices) == 0 || st.EndsAt == 0 {
		t.Fatalf("question state incomplete: %+v", st)
	}

	// player answers
	postJSON[map[string]bool](t, server, "/api/game/"+created.GameID+"/answer", map[string]any{
		"playerId":    joined.PlayerID,
		"playerToken": joined.PlayerToken,
		"choice":      1,
	}, "", http.StatusOK)

	// duplicate answer rejected
	resp := doPost(t, server, "/api/game/"+created.GameID+"/answer", map[string]any{
		"playerId":    joined.PlayerID,
		"playerToken": joined.PlayerToken,
		"choice":      0,
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate answer, got %d", resp.StatusCode)
	}
}

func TestHostEndpointsRequireToken(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	created := postJSON[app.CreatedGame](t, server, "/api/game/create", nil, "", http.StatusOK)

	for _, path := range []string{"/start", "/next"} {
		resp := doPost(t, server, "/api/game/"+created.GameID+path, nil, "wrong-token")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}

	// the rejected calls must not have advanced the game
	if st := getState(t, server, created.GameID); st.Phase != domain.PhaseLobby {
		t.Fatalf("unauthorized calls changed phase to %s", st.Phase)
	}
}

func TestUnknownGameIs404(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/game/AAAA0000/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// IDs that don't match the code pattern never reach a handler
	resp2, err := http.Get(server.URL + "/api/game/short/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for malformed game ID, got %d", resp2.StatusCode)
	}
}

func TestAnswerRequiresCredentials(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	created := postJSON[app.CreatedGame](t, server, "/api/game/create", nil, "", http.StatusOK)

	resp := doPost(t, server, "/api/game/"+created.GameID+"/answer", map[string]any{"choice": 1}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing credentials, got %d", resp.StatusCode)
	}
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/game/create", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
}

// --- helpers ---

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz:test": {
			Key: "quiz:test",
			Questions: []domain.Question{
				{Text: "Q1", Choices: []string{"a", "b", "c"}, Correct: 1},
				{Text: "Q2", Choices: []string{"x", "y"}, Correct: 0},
			},
		},
		app.DefaultQuizKey: {
			Key: app.DefaultQuizKey,
			Questions: []domain.Question{
				{Text: "Q1", Choices: []string{"a", "b"}, Correct: 0},
			},
		},
	})
	service := app.NewGameService(app.Config{
		Quizzes:  memory.NewQuizRepository(loader, 5*time.Minute),
		Store:    memory.NewSnapshotStore(),
		Duration: 20 * time.Second,
	})
	handler := NewHandler(service)
	return httptest.NewServer(handler.Routes([]string{"http://app.example"}))
}

func doPost(t *testing.T, server *httptest.Server, path string, body any, bearer string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	return resp
}

func postJSON[T any](t *testing.T, server *httptest.Server, path string, body any, bearer string, wantStatus int) T {
	t.Helper()

	resp := doPost(t, server, path, body, bearer)
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("post %s: expected %d, got %d", path, wantStatus, resp.StatusCode)
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return out
}

func getState(t *testing.T, server *httptest.Server, gameID string) domain.GameState {
	t.Helper()

	resp, err := http.Get(server.URL + "/api/game/" + gameID + "/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get state: expected 200, got %d", resp.StatusCode)
	}
	var st domain.GameState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

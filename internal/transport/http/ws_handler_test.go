package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizroom/internal/app"
	"quizroom/internal/domain"
)

func TestWebSocketStateFeed(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	created := postJSON[app.CreatedGame](t, server, "/api/game/create", map[string]string{"quizKey": "quiz:test"}, "", http.StatusOK)

	u := "ws" + server.URL[len("http"):] + "/api/game/" + created.GameID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// initial snapshot on connect
	st := readState(t, conn)
	if st.Phase != domain.PhaseLobby || st.PlayerCount != 0 {
		t.Fatalf("expected empty lobby snapshot, got %+v", st)
	}

	// a join pushes an update
	postJSON[app.JoinedPlayer](t, server, "/api/game/"+created.GameID+"/join", map[string]string{"name": "Alice"}, "", http.StatusOK)

	st = readState(t, conn)
	if st.PlayerCount != 1 {
		t.Fatalf("expected join update, got %+v", st)
	}

	// starting the game pushes the question, without the correct index
	postJSON[map[string]bool](t, server, "/api/game/"+created.GameID+"/start", nil, created.HostToken, http.StatusOK)

	st = readState(t, conn)
	if st.Phase != domain.PhaseQuestion || st.Question == nil {
		t.Fatalf("expected question snapshot, got %+v", st)
	}
}

func TestWebSocketUnknownGame(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/api/game/AAAA0000/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for unknown game")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func readState(t *testing.T, conn *websocket.Conn) domain.GameState {
	t.Helper()
	var st domain.GameState
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&st); err != nil {
		t.Fatalf("read state: %v", err)
	}
	return st
}

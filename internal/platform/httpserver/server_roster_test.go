package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	rosterhttp "demesne/contexts/realm-community/subject-roster/transport/http"
)

func registerTestSubject(t *testing.T, server *Server, playerID string) {
	t.Helper()
	body := []byte(`{"player_id":"` + playerID + `","player_name":"Subject ` + playerID + `","attack":2,"defense":2,"leadership":1,"building":1}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/subjects", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register fixture failed: %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestRegisterSubjectEndpoint(t *testing.T) {
	server := newTestServer(nil)
	registerTestSubject(t, server, "player-1")

	// A duplicate registration conflicts.
	body := []byte(`{"player_id":"player-1","player_name":"Aldric"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/subjects", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestGetSubjectNotFound(t *testing.T) {
	server := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/subjects/ghost", nil)

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTrainSkillsEndpoint(t *testing.T) {
	server := newTestServer(nil)
	registerTestSubject(t, server, "player-1")

	body := []byte(`{"attack":6,"defense":5,"leadership":4,"building":3}`)
	req := httptest.NewRequest(http.MethodPut, "/v1/subjects/player-1/skills", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var dto rosterhttp.SubjectDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.SkillTotal != 18 {
		t.Fatalf("expected skill total 18, got %d", dto.SkillTotal)
	}
}

func TestJoinSettlementEndpoint(t *testing.T) {
	server := newTestServer(nil)
	registerTestSubject(t, server, "player-1")

	req := httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/player-1/join", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/player-1/join", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat join, got %d body=%s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/ghost/join", nil)
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown player, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCheckInWithoutStandingFails(t *testing.T) {
	server := newTestServer(nil)
	registerTestSubject(t, server, "player-1")

	req := httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/player-1/check-in", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAdjustReputationRejectsZeroDelta(t *testing.T) {
	server := newTestServer(nil)
	registerTestSubject(t, server, "player-1")

	joinReq := httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/player-1/join", nil)
	joinRR := httptest.NewRecorder()
	server.mux.ServeHTTP(joinRR, joinReq)
	if joinRR.Code != http.StatusCreated {
		t.Fatalf("join fixture failed: %d body=%s", joinRR.Code, joinRR.Body.String())
	}

	body := []byte(`{"delta":0}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/player-1/reputation", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}

	body = []byte(`{"delta":12}`)
	req = httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/player-1/reputation", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var dto rosterhttp.StandingDTO
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.Reputation != 12 {
		t.Fatalf("expected reputation 12, got %d", dto.Reputation)
	}
}

func TestListRosterEndpoint(t *testing.T) {
	server := newTestServer(nil)
	for _, playerID := range []string{"player-b", "player-a"} {
		registerTestSubject(t, server, playerID)
		req := httptest.NewRequest(http.MethodPost, "/v1/settlements/settlement-1/subjects/"+playerID+"/join", nil)
		rr := httptest.NewRecorder()
		server.mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("join fixture failed: %d body=%s", rr.Code, rr.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/settlements/settlement-1/subjects", nil)
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp rosterhttp.RosterResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}
	if resp.Entries[0].Subject.PlayerID != "player-a" {
		t.Fatalf("roster must sort by player id, got %q first", resp.Entries[0].Subject.PlayerID)
	}
}

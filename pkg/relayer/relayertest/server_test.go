package relayertest

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestServer_ScriptedReplies(t *testing.T) {
	srv := NewServer()
	defer srv.Close()
	srv.OnPost("input-proof", Queued("abc", "2"))
	srv.OnPoll("input-proof", Succeeded(`{"accepted":false,"extraData":"0x00"}`))

	resp, err := http.Post(srv.URL+"/v2/input-proof", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("POST status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if got := resp.Header.Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
	if !strings.Contains(string(body), `"job_id":"abc"`) {
		t.Errorf("body = %s, want job_id abc", body)
	}

	resp, err = http.Get(srv.URL + "/v2/input-proof/abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	calls := srv.Calls()
	if len(calls) != 2 {
		t.Fatalf("len(Calls()) = %d, want 2", len(calls))
	}
	if calls[1].JobID != "abc" || calls[1].Op != "input-proof" {
		t.Errorf("poll call = %+v, want op input-proof job abc", calls[1])
	}
	if got := srv.Count(http.MethodPost); got != 1 {
		t.Errorf("Count(POST) = %d, want 1", got)
	}
}

func TestServer_ExhaustedScript(t *testing.T) {
	srv := NewServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v2/keyurl")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotImplemented)
	}
}

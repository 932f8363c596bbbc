//go:build integration

package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func baseURL() string {
	if v := os.Getenv("MINDBRIDGE_TEST_BASE_URL"); strings.TrimSpace(v) != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:18080"
}

func TestStudentJourneyIntegration(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL()

	email := fmt.Sprintf("integration_%d@uni.example", time.Now().UnixNano())
	password := "Secret123!"

	var registerResp struct {
		Token  string `json:"token"`
		UserID string `json:"user_id"`
	}
	do(t, client, http.MethodPost, base+"/api/auth/register", "", map[string]any{
		"email":       email,
		"password":    password,
		"name":        "Integration Student",
		"institution": "University of Ghana",
	}, &registerResp)
	if registerResp.Token == "" || registerResp.UserID == "" {
		t.Fatalf("unexpected register response: %+v", registerResp)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	do(t, client, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &loginResp)
	token := loginResp.Token
	if token == "" {
		t.Fatalf("login did not return token")
	}

	var session struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	do(t, client, http.MethodPost, base+"/api/assessments/sessions", token, nil, &session)
	if session.ID == "" || session.State != "collecting" {
		t.Fatalf("unexpected session: %+v", session)
	}

	answers := map[string]int{"1": 2, "2": 2, "3": 2, "4": 2, "5": 2, "6": 1, "7": 1, "8": 0, "9": 0}
	do(t, client, http.MethodPut, base+"/api/assessments/sessions/"+session.ID+"/answers", token,
		map[string]any{"answers": answers}, &session)
	if session.State != "complete" {
		t.Fatalf("expected complete session, got %q", session.State)
	}

	var submit struct {
		Result struct {
			TotalScore int    `json:"total_score"`
			Severity   string `json:"severity"`
			Action     string `json:"action"`
		} `json:"result"`
		RecordID string          `json:"record_id"`
		Saved    bool            `json:"saved"`
		Support  json.RawMessage `json:"support"`
	}
	do(t, client, http.MethodPost, base+"/api/assessments/sessions/"+session.ID+"/submit", token, nil, &submit)
	if submit.Result.TotalScore != 12 || submit.Result.Severity != "Moderate" {
		t.Fatalf("unexpected result: %+v", submit.Result)
	}
	if !submit.Saved || submit.RecordID == "" {
		t.Fatalf("expected saved record, got %+v", submit)
	}
	if len(submit.Support) == 0 {
		t.Fatalf("expected crisis support for %s", submit.Result.Action)
	}

	do(t, client, http.MethodPost, base+"/api/moods", token, map[string]any{"mood": 4, "note": "better today"}, nil)

	req, err := http.NewRequest(http.MethodGet, base+"/api/assessments/export", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("export request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("export status %d body %s", resp.StatusCode, string(body))
	}
	csvData, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read export data: %v", err)
	}
	if !strings.Contains(string(csvData), submit.RecordID) {
		t.Fatalf("export csv did not contain record id; csv=%s", csvData)
	}

	do(t, client, http.MethodDelete, base+"/api/profile", token, nil, nil)
}

func do(t *testing.T, client *http.Client, method, url, token string, body any, out any) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("http %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d for %s: %s", resp.StatusCode, url, string(bodyBytes))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response from %s: %v", url, err)
		}
	}
}

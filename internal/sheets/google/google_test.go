package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"
	goption "google.golang.org/api/option"

	"lifedash/internal/log"
)

var testConfig = Config{SpreadsheetID: "sheet-1", HabitsRange: "Habits!A2:B", MentalRange: "Mental!A2:A"}

// fakeSheets answers values:batchGet with canned ranges.
type fakeSheets struct {
	ranges  []any
	status  int
	gotPath string
	gotRng  []string
	gotAuth string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.gotPath = r.URL.Path
	f.gotRng = r.URL.Query()["ranges"]
	f.gotAuth = r.Header.Get("Authorization")

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"forbidden"}}`)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"valueRanges": f.ranges})
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), testConfig, log.New(log.Config{Output: io.Discard}),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestReadSeed(t *testing.T) {
	fake := &fakeSheets{ranges: []any{
		map[string]any{"range": "Habits!A2:B4", "values": [][]any{{"Gym", 20}, {"Read"}, {"Gym", 3}}},
		map[string]any{"range": "Mental!A2:A3", "values": [][]any{{"Mood"}, {"Focus"}}},
	}}
	c := newTestClient(t, fake)

	seed, err := c.ReadSeed(context.Background())
	if err != nil {
		t.Fatalf("ReadSeed() error = %v", err)
	}

	if len(seed.Habits) != 2 || seed.Habits[0].Name != "Gym" || seed.Habits[0].Goal != 20 || seed.Habits[1].Goal != 30 {
		t.Errorf("habits = %+v", seed.Habits)
	}
	if len(seed.Mental) != 2 || seed.Mental[1] != "Focus" {
		t.Errorf("mental = %v", seed.Mental)
	}

	if !strings.HasSuffix(fake.gotPath, "/spreadsheets/sheet-1/values:batchGet") {
		t.Errorf("path = %q", fake.gotPath)
	}
	if strings.Join(fake.gotRng, "|") != "Habits!A2:B|Mental!A2:A" {
		t.Errorf("ranges = %v", fake.gotRng)
	}
	if fake.gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", fake.gotAuth)
	}
}

func TestReadSeedAPIError(t *testing.T) {
	c := newTestClient(t, &fakeSheets{status: http.StatusForbidden})
	if _, err := c.ReadSeed(context.Background()); err == nil || !strings.Contains(err.Error(), "read seed ranges") {
		t.Errorf("err = %v", err)
	}
}

func TestReadSeedMissingRange(t *testing.T) {
	c := newTestClient(t, &fakeSheets{ranges: []any{map[string]any{"values": [][]any{{"Gym"}}}}})
	if _, err := c.ReadSeed(context.Background()); err == nil {
		t.Error("expected error when a range is missing from the response")
	}
}

func TestReadSeedWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "sheet-1"}
	if _, err := c.ReadSeed(context.Background()); err == nil {
		t.Fatal("expected error when the service is not initialized")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []Config{
		{SpreadsheetID: " ", HabitsRange: "A", MentalRange: "B"},
		{SpreadsheetID: "sheet-1", HabitsRange: "", MentalRange: "B"},
	}
	for _, cfg := range tests {
		if _, err := New(context.Background(), cfg, nil, goption.WithoutAuthentication()); err == nil {
			t.Errorf("New(%+v) expected error", cfg)
		}
	}
}

func TestCredentialsLoad(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := (Credentials{}).load(); err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("empty credentials err = %v", err)
	}

	data, err := Credentials{JSON: ` {"type":"service_account"} `}.load()
	if err != nil || string(data) != `{"type":"service_account"}` {
		t.Errorf("inline credentials = %q, %v", data, err)
	}

	path := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	data, err = (Credentials{}).load()
	if err != nil || string(data) != `{"from":"file"}` {
		t.Errorf("ADC file credentials = %q, %v", data, err)
	}

	if _, err := (Credentials{File: filepath.Join(t.TempDir(), "missing.json")}).load(); err == nil {
		t.Error("expected error for unreadable file")
	}
}

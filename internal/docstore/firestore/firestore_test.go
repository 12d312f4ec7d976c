package firestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialsFromEnv(t *testing.T) {
	for _, key := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(key, "")
	}
	ctx := context.Background()

	if _, err := credentialsFromEnv(ctx); err == nil {
		t.Fatalf("expected error without credentials")
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	if opt, err := credentialsFromEnv(ctx); err != nil || opt == nil {
		t.Fatalf("inline credentials: %v", err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := credentialsFromEnv(ctx); err == nil {
		t.Fatalf("expected error for missing credentials file")
	}

	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", file)
	if _, err := credentialsFromEnv(ctx); err != nil {
		t.Fatalf("file credentials: %v", err)
	}
}

func TestNewRequiresProject(t *testing.T) {
	if _, err := New(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty project id")
	}
}

// Package firestore stores tracker documents in Cloud Firestore under
// users/{uid}/{collection}/{docId}.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gfs "cloud.google.com/go/firestore"
	goption "google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"lifedash/internal/docstore"
)

type Store struct {
	client *gfs.Client
}

// New connects to the given project using opts for credentials.
func New(ctx context.Context, projectID string, opts ...goption.ClientOption) (*Store, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("missing firestore project id")
	}
	client, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewFromEnv connects using service account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, projectID string) (*Store, error) {
	opt, err := credentialsFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, projectID, opt)
}

func credentialsFromEnv(ctx context.Context) (goption.ClientOption, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials for Firestore")
		return goption.WithCredentialsJSON([]byte(serviceAccountJSON)), nil
	case serviceAccountFile != "":
		raw, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using credentials file for Firestore", "path", serviceAccountFile)
		return goption.WithCredentialsJSON(raw), nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (s *Store) doc(ref docstore.Ref) *gfs.DocumentRef {
	return s.client.Collection("users").Doc(ref.UserID).Collection(ref.Collection).Doc(ref.DocID)
}

func (s *Store) Get(ctx context.Context, ref docstore.Ref) (docstore.Document, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.doc(ref).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	if !snap.Exists() {
		return nil, docstore.ErrNotFound
	}
	return docstore.Document(snap.Data()), nil
}

// Set merge-writes doc with a server-assigned lastUpdated timestamp.
func (s *Store) Set(ctx context.Context, ref docstore.Ref, doc docstore.Document) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	data := doc.Fields()
	data[docstore.FieldLastUpdated] = gfs.ServerTimestamp
	if _, err := s.doc(ref).Set(ctx, data, gfs.MergeAll); err != nil {
		return fmt.Errorf("set %s: %w", ref, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, userID, collection string) ([]docstore.Document, error) {
	snaps, err := s.client.Collection("users").Doc(userID).Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, docstore.Document(snap.Data()))
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

package db

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/shinyyama/quickfix-backend/internal/config"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// ClientOptions returns the credential options shared by the Firebase and
// Cloud Storage clients. Without a credentials file the default chain applies.
func ClientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

// CredProjectID reports the project the default credentials belong to, or ""
// when there are none. Used to flag a token/project mismatch at startup.
func CredProjectID(ctx context.Context) string {
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil || creds == nil {
		return ""
	}
	return creds.ProjectID
}

func NewFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	projectID := cfg.FirebaseProjectID
	if projectID == "" {
		projectID = CredProjectID(ctx)
	}
	if projectID == "" {
		return nil, fmt.Errorf("FIREBASE_PROJECT_ID is not set")
	}
	fbCfg := &firebase.Config{ProjectID: projectID, StorageBucket: cfg.StorageBucket}
	return firebase.NewApp(ctx, fbCfg, ClientOptions(cfg)...)
}

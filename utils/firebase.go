// utils/firebase.go
package utils

import (
	"context"
	"fmt"

	"bookflow/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var FCMClient *messaging.Client

// FirebaseInit initializes the Firebase App and Messaging client.
func FirebaseInit(ctx context.Context) error {
	if config.AppConfig.FirebaseCredentialsFile == "" {
		return fmt.Errorf("firebase: FIREBASE_CREDENTIALS_FILE is not set")
	}
	opt := option.WithCredentialsFile(config.AppConfig.FirebaseCredentialsFile)

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("firebase: error initializing app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}

	FCMClient = client
	return nil
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseline/internal/domain"
	"caseline/internal/repo"
)

// CreateAPIKey mints a key for a registered actor. The plaintext secret is
// returned once; only its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if _, err := e.Repo.GetActor(ctx, actorID); err != nil {
		return domain.APIKey{}, "", fmt.Errorf("actor %s: %w", actorID, err)
	}
	secret := uuid.New().String()
	key := domain.APIKey{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.Repo.InsertAPIKey(ctx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, secret, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"formpilot/config"
	"formpilot/models"
)

// ProfileStore keeps fully-resolved candidate profiles in Redis under opaque
// refs. Profiles expire after the configured TTL so candidate data never
// outlives its retention window.
type ProfileStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProfileStore(cfg config.RedisConfig) *ProfileStore {
	return &ProfileStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.ProfileTTL,
	}
}

func profileKey(ref string) string {
	return "profile:" + ref
}

// Save stores the profile and returns its ref.
func (s *ProfileStore) Save(ctx context.Context, profile *models.CandidateProfile) (string, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("could not encode profile: %w", err)
	}
	ref := uuid.NewString()
	if err := s.client.Set(ctx, profileKey(ref), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("could not store profile: %w", err)
	}
	return ref, nil
}

// Get resolves a ref to a profile. A missing or expired ref maps to
// ErrProfileNotFound.
func (s *ProfileStore) Get(ctx context.Context, ref string) (*models.CandidateProfile, error) {
	data, err := s.client.Get(ctx, profileKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load profile: %w", err)
	}
	var profile models.CandidateProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("could not decode profile %s: %w", ref, err)
	}
	return &profile, nil
}

// Delete removes a stored profile ahead of its TTL.
func (s *ProfileStore) Delete(ctx context.Context, ref string) error {
	return s.client.Del(ctx, profileKey(ref)).Err()
}

// Close releases the underlying Redis connection.
func (s *ProfileStore) Close() error {
	return s.client.Close()
}

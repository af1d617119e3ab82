package credentials

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"videogen/internal/infra"
	"videogen/internal/sqlinline"
)

// Store keeps bearer keys for generation services in the ledger database,
// one per service endpoint.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// APIKey returns the key saved for the service at baseURL, or "" when none
// has been saved.
func (s *Store) APIKey(ctx context.Context, baseURL string) (string, error) {
	endpoint, err := Endpoint(baseURL)
	if err != nil {
		return "", err
	}
	var key string
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectServiceKey, endpoint).Scan(&key); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(key), nil
}

// SaveAPIKey stores key for baseURL, replacing any previous key.
func (s *Store) SaveAPIKey(ctx context.Context, baseURL, key, note string) error {
	endpoint, err := Endpoint(baseURL)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("credentials: api key is required")
	}
	_, err = s.sql.Exec(ctx, sqlinline.QSaveServiceKey, endpoint, key, strings.TrimSpace(note))
	return err
}

// DeleteAPIKey removes the key for baseURL and reports whether one existed.
func (s *Store) DeleteAPIKey(ctx context.Context, baseURL string) (bool, error) {
	endpoint, err := Endpoint(baseURL)
	if err != nil {
		return false, err
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteServiceKey, endpoint)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Endpoint reduces a service URL to "scheme://host[:port]" in lower case, so
// "http://GPU-1:8000/" and "http://gpu-1:8000/v1" share a key.
func Endpoint(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.New("credentials: invalid service url")
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

package session

import (
	"encoding/base64"
	"encoding/json"
)

// metadata is the provider session cookie payload. It carries no tokens.
type metadata struct {
	User      User  `json:"user"`
	ExpiresAt int64 `json:"expires_at"`
}

func encodeMetadata(s *Session) (string, error) {
	data, err := json.Marshal(metadata{User: s.User, ExpiresAt: s.ExpiresAt.Unix()})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeMetadata(v string) (metadata, error) {
	var m metadata
	data, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}

package authentication

// Credentials saved by `petshop auth login`, kept in the OS keyring.
import (
	"encoding/json"
	"errors"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "petshop-cli"
	tokenKey    = "access_token"
)

var ErrNotLoggedIn = errors.New("not logged in, run `petshop auth login` first")

type StoredCredentials struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	ExpiresAt   int64  `json:"expires_at"` // unix seconds
}

func NewCredentials(username, token string, expiresIn int64) *StoredCredentials {
	return &StoredCredentials{
		AccessToken: token,
		Username:    username,
		ExpiresAt:   time.Now().Add(time.Duration(expiresIn) * time.Second).Unix(),
	}
}

func (c *StoredCredentials) Expired() bool {
	return time.Now().Unix() >= c.ExpiresAt
}

func StoreCredentials(creds *StoredCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, tokenKey, string(data))
}

// LoadCredentials returns ErrNotLoggedIn when nothing usable is stored
func LoadCredentials() (*StoredCredentials, error) {
	value, err := keyring.Get(serviceName, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}

	var creds StoredCredentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return nil, err
	}
	if creds.Expired() {
		return nil, ErrNotLoggedIn
	}
	return &creds, nil
}

func DeleteCredentials() error {
	err := keyring.Delete(serviceName, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

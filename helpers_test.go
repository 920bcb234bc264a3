package sdk

import (
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestClient(t *testing.T, baseURL string, store CredentialStore) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:    baseURL,
		Store:      store,
		HTTPClient: &http.Client{},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

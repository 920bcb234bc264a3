// Package sdk provides the CadenaFria Go SDK for interacting with the
// cold-chain dashboard API.
package sdk

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cadenafria/cadenafria-go/headers"
)

type authStrategy interface {
	Apply(req *http.Request)
}

type authChain []authStrategy

func (c authChain) Apply(req *http.Request) {
	for _, s := range c {
		if s == nil {
			continue
		}
		s.Apply(req)
	}
}

// bearerAuth reads the credential store on every request so a token persisted
// by login or refresh is visible to the next request without rewiring.
type bearerAuth struct {
	store CredentialStore
}

func (b bearerAuth) Apply(req *http.Request) {
	token, ok := b.store.Get()
	if !ok {
		return
	}
	req.Header.Set(headers.Authorization, "Bearer "+token)
}

// requestIDAuth stamps each outgoing request with a correlation id. A retried
// request keeps the id of its original attempt.
type requestIDAuth struct{}

func (requestIDAuth) Apply(req *http.Request) {
	if req.Header.Get(headers.RequestID) != "" {
		return
	}
	req.Header.Set(headers.RequestID, uuid.NewString())
}

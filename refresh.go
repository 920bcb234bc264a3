package sdk

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/cadenafria/cadenafria-go/auth"
)

// credentialRefresher is the coordinator contract the transport depends on.
type credentialRefresher interface {
	Credential(ctx context.Context) (string, error)
}

// refreshCoordinator guarantees at most one in-flight refresh call.
//
// N concurrent 401s produce exactly one POST /auth/refresh: the first caller
// starts the call, later callers attach to its pending outcome, and the
// in-flight marker is released only after every waiter has observed the
// shared result. The next 401 after settlement starts a fresh call.
type refreshCoordinator struct {
	group  singleflight.Group
	authc  *auth.Client
	store  CredentialStore
	logger zerolog.Logger
}

func newRefreshCoordinator(authc *auth.Client, store CredentialStore, logger zerolog.Logger) *refreshCoordinator {
	return &refreshCoordinator{authc: authc, store: store, logger: logger}
}

// Credential returns a freshly issued access token. On success the token is
// persisted before any waiter resumes; on failure the store is cleared so a
// rejected credential cannot be re-attached to later requests.
func (rc *refreshCoordinator) Credential(ctx context.Context) (string, error) {
	v, err, shared := rc.group.Do("refresh", func() (any, error) {
		tokens, err := rc.authc.Refresh(ctx)
		if err != nil {
			if cerr := rc.store.Clear(); cerr != nil {
				rc.logger.Warn().Err(cerr).Msg("clearing credential store after failed refresh")
			}
			return nil, err
		}
		if err := rc.store.Set(tokens.AccessToken); err != nil {
			return nil, err
		}
		return tokens.AccessToken, nil
	})
	if err != nil {
		rc.logger.Debug().Err(err).Bool("shared", shared).Msg("credential refresh failed")
		return "", err
	}
	return v.(string), nil
}

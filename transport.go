package sdk

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cadenafria/cadenafria-go/headers"
	"github.com/cadenafria/cadenafria-go/routes"
)

// recoveryTransport is the SDK's interception layer. On the way out it
// attaches the stored credential and a request id; on the way back it drives
// the 401 recovery protocol: refresh through the coordinator, replay the
// original request once, and signal centralized sign-out when recovery is
// exhausted.
type recoveryTransport struct {
	next    http.RoundTripper
	auth    authChain
	refresh credentialRefresher

	// onAuthExhausted is the sign-out slot, set once during client wiring.
	onAuthExhausted func()

	logger zerolog.Logger
}

// Paths that never enter recovery: a 401 from refresh would loop forever,
// logout must always succeed locally, and a 401 from login is a credential
// error for the caller, not a session-expiry event.
var recoveryExcluded = [...]string{routes.AuthRefresh, routes.AuthLogout, routes.AuthLogin}

func excludedFromRecovery(path string) bool {
	for _, p := range recoveryExcluded {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func (t *recoveryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	t.auth.Apply(attempt)
	injectTraceparent(req.Context(), attempt)

	resp, err := t.next.RoundTrip(attempt)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if t.refresh == nil || excludedFromRecovery(req.URL.Path) {
		return resp, nil
	}
	// A request whose body cannot be replayed cannot be retried.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	token, rerr := t.refresh.Credential(req.Context())
	if rerr != nil {
		t.logger.Warn().Err(rerr).Str("path", req.URL.Path).Msg("credential refresh failed, signing out")
		t.signalAuthExhausted()
		// Propagate the original 401 to the caller.
		return resp, nil
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return resp, nil
		}
		retry.Body = body
	}
	t.auth.Apply(retry)
	injectTraceparent(req.Context(), retry)
	retry.Header.Set(headers.Authorization, "Bearer "+token)

	resp.Body.Close()
	retryResp, err := t.next.RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if retryResp.StatusCode == http.StatusUnauthorized {
		// Refresh succeeded but the replay is still unauthorized. One retry
		// is the budget; surface the failure and sign out.
		t.logger.Warn().Str("path", req.URL.Path).Msg("request unauthorized after refresh, signing out")
		t.signalAuthExhausted()
	}
	return retryResp, nil
}

func (t *recoveryTransport) signalAuthExhausted() {
	if t.onAuthExhausted == nil {
		return
	}
	t.onAuthExhausted()
}

package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity fields embedded in an access token.
//
// Decoding never verifies the signature or the expiry: the token is trusted
// because it arrived in a successful login/refresh response over a trusted
// channel, and the server re-verifies it on every request. Claims exist for
// identity shaping and display only; they are not a trust boundary.
type Claims struct {
	SubjectID  string
	RoleID     int
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// DecodeError reports a token that could not be parsed into claims.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "sdk/auth: decode token: " + e.Reason
	}
	return fmt.Sprintf("sdk/auth: decode token: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Role names the API used before it switched to numeric role ids. Older
// tokens still carry them.
var roleNameIDs = map[string]int{
	"superadmin":  1,
	"admin":       2,
	"frigorifico": 3,
	"logistica":   4,
	"tienda":      5,
}

// DecodeClaims parses a signed token string into an unverified claim set.
//
// A well-formed token must yield a subject and a role; their absence is a
// decode failure, never a defaulted field.
func DecodeClaims(token string) (Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, &DecodeError{Reason: "malformed token", Err: err}
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, &DecodeError{Reason: "unexpected claims type"}
	}

	claims := Claims{
		Email:      stringClaim(mc, "email"),
		Name:       stringClaim(mc, "name"),
		GivenName:  stringClaim(mc, "nombre_usuario"),
		FamilyName: stringClaim(mc, "apellido_usuario"),
	}

	claims.SubjectID = stringClaim(mc, "sub")
	if claims.SubjectID == "" {
		claims.SubjectID = stringClaim(mc, "id")
	}
	if claims.SubjectID == "" {
		return Claims{}, &DecodeError{Reason: "missing subject"}
	}

	role, ok := roleClaim(mc)
	if !ok {
		return Claims{}, &DecodeError{Reason: "missing role"}
	}
	claims.RoleID = role

	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

func stringClaim(mc jwt.MapClaims, key string) string {
	switch v := mc[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func roleClaim(mc jwt.MapClaims) (int, bool) {
	for _, key := range []string{"role_id", "id_rol", "role"} {
		switch v := mc[key].(type) {
		case float64:
			return int(v), true
		case string:
			if id, ok := roleNameIDs[v]; ok {
				return id, true
			}
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

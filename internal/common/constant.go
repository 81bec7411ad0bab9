package common

// AccessTokenHeaderName is the gRPC/HTTP metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Cookie names shared by the server binding and the CLI session file.
const (
	SessionCookieName    = "session"
	RefreshCookieName    = "refresh"
	OAuthNonceCookieName = "oauth_nonce"
)

// DefaultRole is granted to every newly created account.
const DefaultRole = "user"

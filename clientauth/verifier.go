package clientauth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-token-server/clients"
	"github.com/jrsteele09/go-token-server/oauth2"
	"github.com/pkg/errors"
)

// Method identifies a token endpoint client authentication method.
type Method string

const (
	ClientSecretBasic Method = "client_secret_basic"
	ClientSecretPost  Method = "client_secret_post"
	ClientSecretJWT   Method = "client_secret_jwt"
	PrivateKeyJWT     Method = "private_key_jwt"

	// MethodNone marks a public client that presented no credentials.
	MethodNone Method = "none"
)

var (
	UnknownClientErr        = errors.New("unknown client")
	AuthFailedErr           = errors.New("client authentication failed")
	AssertionReplayedErr    = errors.New("client assertion replayed")
	UnsupportedMethodErr    = errors.New("unsupported client authentication method")
	MissingCredentialsErr   = errors.New("missing client credentials")
	InvalidAssertionTypeErr = errors.New("invalid client assertion type")
)

// Result reports which client authenticated and by which method. The method
// is recorded on the request and used as the default for later requests on
// the same grant.
type Result struct {
	Client *clients.Client
	Method Method
}

// Verifier validates the caller's identity by whichever supported method the
// presented credential material selects.
type Verifier struct {
	clients     clients.Repo
	endpointURL string
	seenJTI     *JTICache
	methods     map[Method]bool
	nowFunc     func() time.Time
}

// VerifierOption modifies a Verifier at construction time.
type VerifierOption func(*Verifier)

// WithMethods restricts the verifier to the given methods.
func WithMethods(methods ...Method) VerifierOption {
	return func(v *Verifier) {
		v.methods = make(map[Method]bool, len(methods))
		for _, m := range methods {
			v.methods[m] = true
		}
	}
}

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowFunc = now
	}
}

// NewVerifier creates a verifier. endpointURL is the token endpoint's own
// URL; JWT assertions must carry it as their audience.
func NewVerifier(repo clients.Repo, endpointURL string, options ...VerifierOption) (*Verifier, error) {
	if repo == nil {
		return nil, errors.New("[NewVerifier] client repo is required")
	}
	v := &Verifier{
		clients:     repo,
		endpointURL: endpointURL,
		seenJTI:     NewJTICache(),
		nowFunc:     time.Now,
		methods: map[Method]bool{
			ClientSecretBasic: true,
			ClientSecretPost:  true,
			ClientSecretJWT:   true,
			PrivateKeyJWT:     true,
		},
	}
	for _, opt := range options {
		opt(v)
	}
	return v, nil
}

// Verify authenticates the caller of a token request. The method is selected
// by which credential material is present: a client assertion, a Basic
// Authorization header, a posted secret, or nothing for public clients.
func (v *Verifier) Verify(req oauth2.TokenRequest) (*Result, error) {
	switch {
	case req.ClientAssertion != "":
		return v.verifyAssertion(req)
	case strings.HasPrefix(req.AuthorizationHeader, "Basic "):
		if req.ClientSecret != "" {
			return v.verifyRegisteredMethod(req)
		}
		return v.verifyBasic(req.AuthorizationHeader)
	case req.ClientSecret != "":
		return v.verifySecretPost(req.ClientID, req.ClientSecret)
	case req.ClientID != "":
		return v.verifyPublic(req.ClientID)
	}
	return nil, MissingCredentialsErr
}

func (v *Verifier) verifyAssertion(req oauth2.TokenRequest) (*Result, error) {
	if req.ClientAssertionType != oauth2.ClientAssertionTypeJWTBearer {
		return nil, InvalidAssertionTypeErr
	}

	// First parse unverified to learn who claims to be calling.
	unverified, _, err := jwt.NewParser().ParseUnverified(req.ClientAssertion, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(AuthFailedErr, "unparsable client assertion")
	}
	issuer, err := unverified.Claims.GetIssuer()
	if err != nil || issuer == "" {
		return nil, errors.Wrap(AuthFailedErr, "assertion missing issuer")
	}
	if req.ClientID != "" && req.ClientID != issuer {
		return nil, errors.Wrap(AuthFailedErr, "assertion issuer does not match client_id")
	}

	client, err := v.clients.Get(issuer)
	if err != nil {
		return nil, UnknownClientErr
	}

	var (
		method Method
		key    any
	)
	switch unverified.Method.(type) {
	case *jwt.SigningMethodHMAC:
		method = ClientSecretJWT
		if client.Secret == "" {
			return nil, errors.Wrap(AuthFailedErr, "client has no secret registered")
		}
		key = []byte(client.Secret)
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		method = PrivateKeyJWT
		if client.PublicKey == nil {
			return nil, errors.Wrap(AuthFailedErr, "client has no key registered")
		}
		key = client.PublicKey
	default:
		return nil, UnsupportedMethodErr
	}
	if !v.methods[method] {
		return nil, UnsupportedMethodErr
	}

	parsed, err := jwt.Parse(req.ClientAssertion,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithAudience(v.endpointURL),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.nowFunc),
	)
	if err != nil || !parsed.Valid {
		return nil, errors.Wrap(AuthFailedErr, "assertion signature or claims invalid")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Wrap(AuthFailedErr, "error extracting assertion claims")
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, errors.Wrap(AuthFailedErr, "assertion missing jti")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.Wrap(AuthFailedErr, "assertion missing exp")
	}
	if v.seenJTI.SeenOrAdd(jti, exp.Time) {
		return nil, AssertionReplayedErr
	}

	return &Result{Client: client, Method: method}, nil
}

// verifyRegisteredMethod resolves requests that present both a Basic header
// and a posted secret. The client's registered endpoint auth method picks
// which credential is verified; Basic wins when none is registered.
func (v *Verifier) verifyRegisteredMethod(req oauth2.TokenRequest) (*Result, error) {
	clientID, _, err := decodeBasic(req.AuthorizationHeader)
	if err != nil {
		return nil, err
	}
	client, err := v.clients.Get(clientID)
	if err != nil {
		return nil, UnknownClientErr
	}
	if Method(client.EndpointAuthMethod) == ClientSecretPost {
		postID := req.ClientID
		if postID == "" {
			postID = clientID
		}
		return v.verifySecretPost(postID, req.ClientSecret)
	}
	return v.verifyBasic(req.AuthorizationHeader)
}

func (v *Verifier) verifyBasic(header string) (*Result, error) {
	if !v.methods[ClientSecretBasic] {
		return nil, UnsupportedMethodErr
	}
	clientID, secret, err := decodeBasic(header)
	if err != nil {
		return nil, err
	}
	client, err := v.clients.Get(clientID)
	if err != nil {
		return nil, UnknownClientErr
	}
	if !secretsEqual(secret, client.Secret) {
		return nil, AuthFailedErr
	}
	return &Result{Client: client, Method: ClientSecretBasic}, nil
}

func (v *Verifier) verifySecretPost(clientID, secret string) (*Result, error) {
	if !v.methods[ClientSecretPost] {
		return nil, UnsupportedMethodErr
	}
	client, err := v.clients.Get(clientID)
	if err != nil {
		return nil, UnknownClientErr
	}
	if !secretsEqual(secret, client.Secret) {
		return nil, AuthFailedErr
	}
	return &Result{Client: client, Method: ClientSecretPost}, nil
}

func (v *Verifier) verifyPublic(clientID string) (*Result, error) {
	client, err := v.clients.Get(clientID)
	if err != nil {
		return nil, UnknownClientErr
	}
	if !client.IsPublic() {
		return nil, MissingCredentialsErr
	}
	return &Result{Client: client, Method: MethodNone}, nil
}

func decodeBasic(header string) (clientID, secret string, err error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return "", "", errors.Wrap(AuthFailedErr, "malformed Basic header")
	}
	clientID, secret, found := strings.Cut(string(raw), ":")
	if !found {
		return "", "", errors.Wrap(AuthFailedErr, "malformed Basic credentials")
	}
	return clientID, secret, nil
}

// secretsEqual compares secrets in constant time.
func secretsEqual(presented, registered string) bool {
	if registered == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(registered)) == 1
}

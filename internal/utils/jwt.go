package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"  // secure random number generation for jti values
    "errors"       // sentinel errors for token verification failures
    "math/big"     // unbiased random index selection into the jti alphabet
    "time"         // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// jtiAlphabet is the character set used for token identifiers: letters and
// digits only, so a jti can be stored and compared as a plain string.
const jtiAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// JTILength is the fixed length of a token identifier.
const JTILength = 32

// Token verification failures are collapsed into two cases: a token that was
// valid once but has outlived its exp claim, and everything else (bad
// signature, wrong algorithm, malformed string, missing claims).
var (
    ErrTokenExpired = errors.New("token expired")
    ErrTokenInvalid = errors.New("token invalid")
)

// ChatClaims is the payload carried by every chat token.  Name identifies
// the principal; the embedded registered claims carry the jti (ID), issue
// and expiry timestamps.  A structurally valid token is still subject to
// the revocation cache check, which compares the jti against the single
// currently-active identifier for the principal.
type ChatClaims struct {
    Name string `json:"name"` // principal (username)
    jwt.RegisteredClaims
}

// NewChatToken builds and signs an HS256 JWT for a principal.  It takes the
// signing secret, the username, a fresh jti from NewJTI, and the token
// lifetime.  The resulting payload is {name, jti, iat, exp} with
// exp = now + ttl.
func NewChatToken(secret, name, jti string, ttl time.Duration) (string, error) {
    now := time.Now().UTC()
    claims := ChatClaims{
        Name: name,
        RegisteredClaims: jwt.RegisteredClaims{
            ID:        jti,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}

// VerifyChatToken checks the signature and expiry of a raw token string and
// returns its claims.  It is purely structural: the revocation cache is a
// separate check performed by callers.  Tokens signed with anything other
// than HMAC are rejected so a crafted "alg" header cannot bypass the secret.
func VerifyChatToken(secret, raw string) (*ChatClaims, error) {
    claims := &ChatClaims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrTokenInvalid
        }
        return []byte(secret), nil
    })
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return nil, ErrTokenExpired
        }
        return nil, ErrTokenInvalid
    }
    if !tok.Valid || claims.Name == "" || claims.ID == "" {
        return nil, ErrTokenInvalid
    }
    return claims, nil
}

// NewJTI generates a fresh token identifier: JTILength characters drawn
// uniformly from the letters+digits alphabet using crypto/rand.  The jti is
// the revocation handle, so predictability would let an attacker keep a
// superseded session alive; a non-cryptographic generator is not acceptable
// here.
func NewJTI() (string, error) {
    max := big.NewInt(int64(len(jtiAlphabet)))
    buf := make([]byte, JTILength)
    for i := range buf {
        n, err := rand.Int(rand.Reader, max)
        if err != nil {
            return "", err
        }
        buf[i] = jtiAlphabet[n.Int64()]
    }
    return string(buf), nil
}

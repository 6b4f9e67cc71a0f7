package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/indieinfra/stash/config"
	"github.com/indieinfra/stash/engine"
)

type identityKeyType struct{}

var identityKey = identityKeyType{}

var (
	ErrEmptyToken           = errors.New("received empty token")
	ErrIdentityEndpointFail = errors.New("failed to contact identity endpoint")
)

// introspection is the wire shape the identity endpoint returns for a valid token.
type introspection struct {
	OwnerID string `json:"owner_id"`
	IsAdmin bool   `json:"is_admin"`
}

// ExtractBearerToken extracts a Bearer token from an Authorization header value.
// Returns an empty string if the header is not present, malformed, or not a Bearer token.
func ExtractBearerToken(auth string) string {
	if auth == "" {
		return ""
	}

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return token
}

// VerifyAccessToken resolves a bearer token into an identity by asking the
// configured identity endpoint. A nil identity with a nil error means the
// token was rejected (not an operational failure).
func VerifyAccessToken(cfg *config.Config, token string) (*engine.Identity, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	req, err := http.NewRequest(http.MethodGet, cfg.Identity.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create http request for identity endpoint: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %v", token))

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityEndpointFail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if cfg.Debug {
			log.Printf("debug: token failed validation at identity endpoint (%q)", token)
		}

		return nil, nil
	}

	var details introspection
	err = json.NewDecoder(resp.Body).Decode(&details)
	if err != nil {
		log.Println(fmt.Errorf("warning: identity endpoint provided bad data, can not verify token: %w", err))
		return nil, nil
	}

	if details.OwnerID == "" {
		log.Println("warning: identity endpoint did not include \"owner_id\" information - cannot verify token")
		return nil, nil
	}

	return &engine.Identity{
		OwnerID: details.OwnerID,
		Admin:   details.IsAdmin,
	}, nil
}

func AddIdentity(ctx context.Context, ident *engine.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

func GetIdentity(ctx context.Context) *engine.Identity {
	ident, ok := ctx.Value(identityKey).(*engine.Identity)
	if !ok {
		return nil
	}

	return ident
}

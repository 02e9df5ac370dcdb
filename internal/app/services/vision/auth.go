package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/internal/httputil"
)

// CognitiveServicesScope is the AAD scope for Azure OpenAI.
const CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// BearerAuth sends Authorization: Bearer <key>. An empty key sends nothing.
func BearerAuth(apiKey string) httputil.Authorizer {
	return httputil.AuthorizerFunc(func(_ context.Context, req *http.Request) error {
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
		return nil
	})
}

// AzureKeyAuth sends the api-key header used by Azure OpenAI key auth.
func AzureKeyAuth(apiKey string) httputil.Authorizer {
	return httputil.AuthorizerFunc(func(_ context.Context, req *http.Request) error {
		if apiKey == "" {
			return errors.New("azure api key not configured")
		}
		req.Header.Set("api-key", apiKey)
		return nil
	})
}

// TokenAuth fetches a bearer token from cred for every request. The Azure
// credential types cache tokens internally.
func TokenAuth(cred azcore.TokenCredential, scopes ...string) httputil.Authorizer {
	if len(scopes) == 0 {
		scopes = []string{CognitiveServicesScope}
	}
	return httputil.AuthorizerFunc(func(ctx context.Context, req *http.Request) error {
		tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: scopes})
		if err != nil {
			return fmt.Errorf("acquire azure token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		return nil
	})
}

// NewAuthorizer builds the authorizer selected by cfg.AuthMode.
func NewAuthorizer(cfg config.VisionConfig) (httputil.Authorizer, error) {
	switch cfg.AuthMode {
	case "", config.AuthBearer:
		return BearerAuth(cfg.APIKey), nil
	case config.AuthAzureKey:
		return AzureKeyAuth(cfg.APIKey), nil
	case config.AuthAzureAD:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create azure credential: %w", err)
		}
		return TokenAuth(cred), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

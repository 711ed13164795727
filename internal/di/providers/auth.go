package providers

import (
	"github.com/samber/do/v2"

	"github.com/sparkapp/spark-server/internal/auth"
	"github.com/sparkapp/spark-server/internal/config"
	"github.com/sparkapp/spark-server/internal/logger"
)

// AuthKey wraps the token signing key bytes.
type AuthKey []byte

// ProvideAuthKey returns the configured signing key, or loads and
// persists a generated one under the data directory.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if len(cfg.Auth.AccessTokenKey) > 0 {
		return AuthKey(cfg.Auth.AccessTokenKey), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.App.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(key), cfg.Auth.AccessTokenDuration)
}

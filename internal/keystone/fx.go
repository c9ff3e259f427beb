package keystone

import (
	"github.com/neilfarmer/mopenstack/internal/config"
	"github.com/neilfarmer/mopenstack/internal/keystone/repository"
	"github.com/neilfarmer/mopenstack/internal/keystone/service"
	"github.com/neilfarmer/mopenstack/internal/keystone/token"
	"go.uber.org/fx"
)

var Module = fx.Module("keystone",
	fx.Provide(
		newIssuer,
		repository.New,
		service.New,
	),
)

func newIssuer(cfg config.Config) *token.Issuer {
	return token.NewIssuer(cfg.SecretKey)
}

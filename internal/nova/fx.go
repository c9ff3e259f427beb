package nova

import (
	"github.com/neilfarmer/mopenstack/internal/nova/repository"
	"github.com/neilfarmer/mopenstack/internal/nova/service"
	"go.uber.org/fx"
)

var Module = fx.Module("nova",
	fx.Provide(
		repository.New,
		service.New,
	),
)

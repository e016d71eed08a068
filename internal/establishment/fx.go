package establishment

import (
	"go.uber.org/fx"

	"github.com/wagedesk/wagedesk/internal/establishment/repository"
	"github.com/wagedesk/wagedesk/internal/establishment/service"
)

var Module = fx.Module("establishment",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

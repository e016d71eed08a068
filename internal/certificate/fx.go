package certificate

import (
	"go.uber.org/fx"

	"github.com/wagedesk/wagedesk/internal/certificate/repository"
	"github.com/wagedesk/wagedesk/internal/certificate/service"
)

var Module = fx.Module("certificate",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

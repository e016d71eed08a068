package ledger

import (
	"go.uber.org/fx"

	"github.com/wagedesk/wagedesk/internal/ledger/repository"
	"github.com/wagedesk/wagedesk/internal/ledger/service"
)

var Module = fx.Module("ledger",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

package audit

import (
	"github.com/smallbiznis/flyerpoint/internal/audit/repository"
	"github.com/smallbiznis/flyerpoint/internal/audit/service"
	"go.uber.org/fx"
)

// Module records admin decisions (withdrawal processing, user status,
// business approval, flyer moderation) and serves the audit log listing.
var Module = fx.Module("audit",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)

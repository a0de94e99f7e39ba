package migration

import (
	"github.com/smallbiznis/parcella/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return Run(conn)
	}),
	fx.Invoke(seed.Run),
)

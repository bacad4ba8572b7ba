package migration

import (
	"github.com/lemur767/assistext-backend-sub001/internal/config"
	conversationdomain "github.com/lemur767/assistext-backend-sub001/internal/conversation/domain"
	messagedomain "github.com/lemur767/assistext-backend-sub001/internal/message/domain"
	usagedomain "github.com/lemur767/assistext-backend-sub001/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Versioned migrations are postgres-only; other dialects are
		// dev/test setups and get the gorm schema directly.
		return conn.AutoMigrate(
			&usagedomain.UsageRecord{},
			&conversationdomain.ConversationRecord{},
			&messagedomain.Client{},
			&messagedomain.Message{},
		)
	}),
)

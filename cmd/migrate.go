package cmd

import (
	"fmt"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/api"
	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/database"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations to create or update database schema.
This command will:
- Create the ministries, users, data_requests and audit_logs tables
- Create foreign keys between them
- Create indexes for the list and audit queries

The command uses the database configuration from the config file or environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return err
		}

		// 2. 连接数据库
		logger.WithFields(map[string]interface{}{
			"driver": cfg.Database.Driver,
			"host":   cfg.Database.Host,
			"dbname": cfg.Database.DBName,
		}).Info("connecting to database")
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}()

		// 3. 执行迁移
		logger.Info("running database migrations")
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Info("database migrations completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

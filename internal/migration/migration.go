package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	budgetdomain "github.com/smallbiznis/flyerpoint/internal/budget/domain"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	ledgerdomain "github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	rewarddomain "github.com/smallbiznis/flyerpoint/internal/reward/domain"
	settlementdomain "github.com/smallbiznis/flyerpoint/internal/settlement/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&userdomain.User{},
		&flyerdomain.Flyer{},
		&flyerdomain.FlyerItem{},
		&flyerdomain.Quiz{},
		&rewarddomain.ShareRecord{},
		&rewarddomain.QuizAttempt{},
		&rewarddomain.VisitVerification{},
		&ledgerdomain.PointTransaction{},
		&budgetdomain.BudgetCharge{},
		&settlementdomain.Withdrawal{},
		&auditdomain.AuditLog{},
	}
}

// Run brings the schema up to date. Postgres uses the versioned SQL files,
// other dialects fall back to AutoMigrate.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

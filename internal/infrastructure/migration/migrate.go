package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlite3mig "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator — интерфейс для самой библиотеки migrate.Migrate
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine — фабрика для создания мигратора (чтобы не лезть в ФС и БД в тестах)
type MigrationEngine func(dsn string) (Migrator, error)

type Migration struct {
	dsn    string
	engine MigrationEngine
}

func NewMigration(dsn string, engine MigrationEngine) *Migration {
	return &Migration{
		dsn:    dsn,
		engine: engine,
	}
}

// DefaultEngine — реальная реализация: встроенные миграции на отдельном
// соединении SQLite, которое migrate закрывает за собой. Только up-файлы:
// схема движется вперёд и никогда не разрушает существующие записи.
func DefaultEngine(dsn string) (Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("migration connection: %w", err)
	}

	driver, err := sqlite3mig.WithInstance(db, &sqlite3mig.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", src, "sqlite3", driver)
}

func (mg *Migration) Up() (err error) {
	m, err := mg.engine(mg.dsn)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w; migration up error", err)
	}
	return nil
}

// Package testutil builds throwaway databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/pkg"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := pkg.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixture is a small catalog with one campaign, two groups and two courses
type Fixture struct {
	Campaign models.Campaign
	GroupA   models.Group
	GroupB   models.Group
	Course   models.Course
	Short    models.Course
	Admin    models.User
	Trainer  models.User
}

// Password is the plain-text password of every seeded user
const Password = "secreto123"

// Seed inserts the fixture catalog plus an admin and a trainer
func Seed(t *testing.T, db *gorm.DB) *Fixture {
	t.Helper()

	f := &Fixture{
		Campaign: models.Campaign{Nombre: "Campaña Movil"},
	}
	mustCreate(t, db, &f.Campaign)

	f.GroupA = models.Group{Nombre: "Grupo A", CampaniaID: f.Campaign.ID}
	f.GroupB = models.Group{Nombre: "Grupo B", CampaniaID: f.Campaign.ID}
	mustCreate(t, db, &f.GroupA)
	mustCreate(t, db, &f.GroupB)

	f.Course = models.Course{Titulo: "Atención al cliente", URLContenido: "https://video.example/1", DuracionMinutos: 30}
	f.Short = models.Course{Titulo: "Seguridad", URLContenido: "https://video.example/2", DuracionMinutos: 2}
	mustCreate(t, db, &f.Course)
	mustCreate(t, db, &f.Short)

	f.Admin = NewUser(t, db, "admin1", models.RoleAdmin, "", models.UserActive)
	f.Trainer = NewUser(t, db, "formador1", models.RoleTrainer, "", models.UserActive)

	return f
}

// NewUser inserts a user with the fixture password
func NewUser(t *testing.T, db *gorm.DB, usuario string, rol models.UserRole, grupo string, estado models.UserStatus) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	qr := "QR-" + usuario
	u := models.User{
		Nombre:       strings.ToUpper(usuario),
		Usuario:      usuario,
		PasswordHash: string(hash),
		Rol:          rol,
		GrupoNombre:  grupo,
		Estado:       estado,
		QRID:         &qr,
	}
	mustCreate(t, db, &u)
	return u
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("seed %T: %v", v, err)
	}
}

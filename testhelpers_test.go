//go:build integration

package main_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Harborview-Hotels/service-booking/internal/application"
	roomDomain "github.com/Harborview-Hotels/service-booking/internal/domain/room"
	"github.com/Harborview-Hotels/service-booking/internal/events"
	"github.com/Harborview-Hotels/service-booking/internal/platform/clock"
	"github.com/Harborview-Hotels/service-booking/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB      *gorm.DB
	Cleanup func()
}

// setupPostgres starts a PostgreSQL testcontainer and returns a connected
// GORM DB with the schema migrated.
func setupPostgres(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_booking",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_booking sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error)
	require.NoError(t, db.AutoMigrate(
		&repository.RoomModel{},
		&repository.BookingModel{},
		&repository.BookingNumberSeqModel{},
	))

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{DB: db, Cleanup: cleanup}
}

// setupBookingService wires the full service stack against the test database.
// Events go to a NopPublisher; broker behavior is not under test here.
func setupBookingService(t *testing.T, db *gorm.DB, clk clock.Clock) *application.BookingService {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	return application.NewBookingService(
		repository.NewGormBookingRepository(db),
		repository.NewGormRoomRepository(db),
		repository.NewGormNumberAllocator(db),
		application.AllowAllReferences{},
		events.NopPublisher{},
		clk,
		logger,
	)
}

// seedRoom inserts an available room and returns its projection.
func seedRoom(t *testing.T, db *gorm.DB, rateCents int64) *roomDomain.Room {
	t.Helper()
	rm := &roomDomain.Room{
		ID:               uuid.New(),
		HotelID:          uuid.New(),
		Name:             fmt.Sprintf("Room %s", uuid.New().String()[:8]),
		NightlyRateCents: rateCents,
		Status:           roomDomain.StatusAvailable,
	}
	repo := repository.NewGormRoomRepository(db)
	require.NoError(t, repo.Save(context.Background(), rm), "failed to seed room")
	return rm
}

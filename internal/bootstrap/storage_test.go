package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Domenick1991/seatbooking/config"
	"github.com/Domenick1991/seatbooking/internal/domain"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtures = `
flights:
  - id: 1
    from_airport: SVO
    to_airport: LED
    departure_time: 2030-01-10T08:00:00Z
    arrival_time: 2030-01-10T09:30:00Z
    classes:
      - id: 1
        name: economy
        total_seats: 50
        fare_cents: 5000
`

func TestOpenStorage_Memory(t *testing.T) {
	log, _ := test.NewNullLogger()
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtures), 0o600))

	storage, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: "memory", Fixtures: path}, log)
	require.NoError(t, err)
	defer storage.Close()

	assert.Nil(t, storage.Check)
	class, err := storage.SeatPools.Get(context.Background(), domain.PoolKey{FlightID: 1, FareClassID: 1})
	require.NoError(t, err)
	assert.Equal(t, 50, class.RemainingSeats)
}

func TestOpenStorage_MissingFixtures(t *testing.T) {
	log, _ := test.NewNullLogger()

	_, err := OpenStorage(context.Background(), config.DatabaseConfig{Driver: "memory", Fixtures: "/does/not/exist.yaml"}, log)

	assert.ErrorContains(t, err, "read fixtures")
}

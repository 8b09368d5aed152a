package testenv

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	kpool "github.com/poselab/dispatchd/pkg/conn/db/postgres/pool"
)

// EnvDsn is the environment variable carrying the DSN of the test database.
//
// The database should have the current schema applied (cmd/schema_upgrader).
// Tests needing a database are skipped when it is not set.
const EnvDsn = "DISPATCHD_TEST_DSN"

// PoolBroaker is a interface to get a pool.
type PoolBroaker interface {
	// GetPool returns a pool.
	//
	// Tables are cleaned up before returning and after t.
	GetPool(ctx context.Context, t *testing.T) kpool.Pool
}

type pg struct {
	pool *pgxpool.Pool
}

func (p *pg) GetPool(ctx context.Context, t *testing.T) kpool.Pool {
	t.Cleanup(func() {
		t.Helper()
		ClearTables(ctx, p.pool, t)
	})

	ClearTables(ctx, p.pool, t)
	return kpool.Wrap(p.pool)
}

// NewPoolBroaker returns a PoolBroaker connected to the database named by
// EnvDsn, or skips t when the variable is not set.
//
// # Args
//
// - ctx: When this context is canceled, the database connection behind the
// pool will be lost.
//
// - t: scope of the PoolBroaker.
// When this test is finished, the broaker will be shutdown.
func NewPoolBroaker(ctx context.Context, t *testing.T) PoolBroaker {
	t.Helper()

	dsn := os.Getenv(EnvDsn)
	if dsn == "" {
		t.Skipf("set %s to run tests needing a database", EnvDsn)
	}

	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	return &pg{pool: pool}
}

func ClearTables(ctx context.Context, p *pgxpool.Pool, t *testing.T) {
	t.Helper()

	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("fail to clean-up tables.: %v", err)
	}
	defer conn.Release()

	for _, command := range []string{
		`truncate "job" RESTART IDENTITY cascade`,
		`truncate "runtime_profile" RESTART IDENTITY cascade`,
		`truncate "video_folder" RESTART IDENTITY cascade`,
		`truncate "weights" RESTART IDENTITY cascade`,
		// by cascade, "execution", "train_input" and "prediction" rows
		// should be deleted too. "schema_version" is left as it is.
	} {
		_, err = conn.Exec(ctx, command)
		if err != nil {
			t.Errorf("fail to clean-up tables.: %v", err)
		}
	}
}

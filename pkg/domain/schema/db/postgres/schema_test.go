package postgres_test

import (
	"context"
	"testing"

	kpool "github.com/poselab/dispatchd/pkg/conn/db/postgres/pool"
	"github.com/poselab/dispatchd/pkg/conn/db/postgres/pool/testenv"
	kpgschema "github.com/poselab/dispatchd/pkg/domain/schema/db/postgres"
	"github.com/poselab/dispatchd/pkg/utils/try"
)

// stashVersions empties "schema_version" for the test and puts the
// recorded rows back afterwards, so the test database stays upgraded.
func stashVersions(ctx context.Context, t *testing.T, pool kpool.Pool) {
	t.Helper()

	conn := try.To(pool.Acquire(ctx)).OrFatal(t)
	defer conn.Release()

	rows, err := conn.Query(ctx, `select "version" from "schema_version"`)
	if err != nil {
		t.Fatal(err)
	}
	saved := []int{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			t.Fatal(err)
		}
		saved = append(saved, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		conn, err := pool.Acquire(ctx)
		if err != nil {
			t.Errorf("fail to restore schema_version: %v", err)
			return
		}
		defer conn.Release()
		if _, err := conn.Exec(ctx, `delete from "schema_version"`); err != nil {
			t.Errorf("fail to restore schema_version: %v", err)
			return
		}
		for _, v := range saved {
			if _, err := conn.Exec(
				ctx, `insert into "schema_version" ("version") values ($1)`, v,
			); err != nil {
				t.Errorf("fail to restore schema_version: %v", err)
			}
		}
	})

	if _, err := conn.Exec(ctx, `delete from "schema_version"`); err != nil {
		t.Fatal(err)
	}
}

func TestSchema_Version(t *testing.T) {
	ctx := context.Background()
	poolBroaker := testenv.NewPoolBroaker(ctx, t)

	t.Run("it reads the recorded version", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		stashVersions(ctx, t, pool)

		conn := try.To(pool.Acquire(ctx)).OrFatal(t)
		if _, err := conn.Exec(
			ctx, `insert into "schema_version" ("version") values (7)`,
		); err != nil {
			conn.Release()
			t.Fatal(err)
		}
		conn.Release()

		testee := kpgschema.New(pool, t.TempDir())
		version := try.To(testee.Version(ctx)).OrFatal(t)
		if version != 7 {
			t.Errorf("version: got %d, want 7", version)
		}
	})

	t.Run("it reports version 0 when the table exists but is empty", func(t *testing.T) {
		pool := poolBroaker.GetPool(ctx, t)
		stashVersions(ctx, t, pool)

		testee := kpgschema.New(pool, t.TempDir())
		version := try.To(testee.Version(ctx)).OrFatal(t)
		if version != 0 {
			t.Errorf("version: got %d, want 0", version)
		}
	})
}

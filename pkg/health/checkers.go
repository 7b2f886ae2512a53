package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GoroutineCountCheck fails when more than threshold goroutines are running,
// which usually means a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when the database does not answer a ping.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// PoolStatFunc returns the acquired and maximum connection counts of a
// pool. For a *pgxpool.Pool use PgxPoolStat.
type PoolStatFunc func() (acquired, maxConns int32)

// PgxPoolStat adapts a pgx pool to PoolStatFunc.
func PgxPoolStat(pool *pgxpool.Pool) PoolStatFunc {
	return func() (int32, int32) {
		s := pool.Stat()
		return s.AcquiredConns(), s.MaxConns()
	}
}

// PoolSaturationCheck fails while every connection of the pool is acquired.
func PoolSaturationCheck(stat PoolStatFunc) CheckFunc {
	return func(_ context.Context) error {
		acquired, maxConns := stat()
		if maxConns > 0 && acquired >= maxConns {
			return errors.Errorf("connection pool saturated: %d/%d acquired", acquired, maxConns)
		}
		return nil
	}
}

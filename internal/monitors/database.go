package monitors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptimer-dev/uptimer/internal/types"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

func CheckDatabase(ctx context.Context, config *types.DatabaseConfig) (Response, error) {
	start := time.Now()
	timeout := config.Timeout

	if timeout == 0 {
		timeout = 10
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	var dsn, driverName string

	switch config.Type {
	case types.Postgres:
		sslMode := config.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		driverName = "postgres"
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", config.Host, config.Port, config.Username, config.Password, config.Database, sslMode)
	case types.MySQL:
		driverName = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
			config.Username, config.Password, config.Host, config.Port, config.Database)
	default:
		return Response{}, refused(start, 500, fmt.Sprintf("unsupported database type: %s", config.Type), nil)
	}

	db, err := sql.Open(driverName, dsn)

	if err != nil {
		return Response{}, refused(start, 500, "failed to open a database connection", err)
	}

	defer db.Close()

	// Test the connection with a ping
	if err := db.PingContext(ctx); err != nil {
		return Response{}, refused(start, 500, "failed to ping database", err)
	}

	return established(start, fmt.Sprintf("%s server running", config.Type)), nil
}

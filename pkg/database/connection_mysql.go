package database

import (
	"flag"
	"log"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gocraft/dbr/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var mysqlConn *dbr.Connection

// MySQLConnection returns database singleton instance
func MySQLConnection() (*dbr.Connection, error) {
	// using a package global variable
	if mysqlConn == nil {
		// telling viper to be aware of its environment
		viper.AutomaticEnv()

		// checking whether it's called during `go test`
		testMode := flag.Lookup("test.v") != nil

		dsn := viper.GetString("database.dsn")
		if testMode {
			dsn = viper.GetString("database.test_dsn")
		}

		dsn = strings.TrimSpace(dsn)
		if dsn == "" {
			return nil, errors.New("database dsn is not configured")
		}

		conn, err := dbr.Open("mysql", dsn, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}

		mysqlConn = conn
	}

	return mysqlConn, nil
}

// MySQLForTesting returns a connection to the test database with this
// module's tables truncated
func MySQLForTesting() (conn *dbr.Connection, err error) {
	if flag.Lookup("test.v") == nil {
		log.Fatal("MySQLForTesting() can only be called during testing")
		return nil, nil
	}

	viper.AutomaticEnv()

	conn, err = dbr.Open("mysql", viper.GetString("database.test_dsn"), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to test database")
	}

	tx, err := conn.NewSession(nil).Begin()
	if err != nil {
		return nil, err
	}
	defer tx.RollbackUnlessCommitted()

	tables := []string{
		"term",
		"term_hierarchy",
		"term_permissions",
		"node_access_grants",
	}

	// truncating tables
	for _, tableName := range tables {
		if _, err := tx.Exec("TRUNCATE TABLE `" + tableName + "`"); err != nil {
			return nil, errors.Wrapf(err, "failed to truncate table %s", tableName)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return conn, nil
}

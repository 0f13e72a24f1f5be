package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	p := PostgresPoolConfig{}.resolve()
	if p.MaxOpenConns != 5 || p.MaxIdleConns != 2 {
		t.Fatalf("unexpected pool sizes: %+v", p)
	}
	if p.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %s", p.PingTimeout)
	}
}

func TestPostgresPoolConfig_KeepsExplicitValues(t *testing.T) {
	p := PostgresPoolConfig{MaxOpenConns: 9, PingTimeout: time.Second}.resolve()
	if p.MaxOpenConns != 9 || p.PingTimeout != time.Second {
		t.Fatalf("explicit values overwritten: %+v", p)
	}
}

func TestPostgresPoolConfig_IdleCappedByOpen(t *testing.T) {
	p := PostgresPoolConfig{MaxOpenConns: 1, MaxIdleConns: 4}.resolve()
	if p.MaxIdleConns != 1 {
		t.Fatalf("idle conns not capped: %+v", p)
	}
}

func TestOpenPostgres_Pings(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("open-postgres-ok", sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectPing()

	db, err := OpenPostgres(context.Background(), "sqlmock", "open-postgres-ok", PostgresPoolConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := db.Stats().MaxOpenConnections; got != 5 {
		t.Fatalf("pool not applied, max open %d", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenPostgres_PingFailure(t *testing.T) {
	_, mock, err := sqlmock.NewWithDSN("open-postgres-down", sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	if _, err := OpenPostgres(context.Background(), "sqlmock", "open-postgres-down", PostgresPoolConfig{}); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestExecStatements_CommitsAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := ExecStatements(context.Background(), db, "CREATE TABLE a", "CREATE TABLE b"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestExecStatements_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	boom := errors.New("syntax error")
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnError(boom)
	mock.ExpectRollback()

	err = ExecStatements(context.Background(), db, "CREATE TABLE a", "CREATE TABLE b", "CREATE TABLE c")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

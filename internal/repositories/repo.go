package repositories

import "database/sql"

// DBTX is satisfied by *sql.DB and *sql.Tx so repo methods can run either
// standalone or inside an assignment transaction.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

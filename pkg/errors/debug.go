package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump flattens an error for structured logs. The driver fields are set
// when the chain holds a Postgres error from the family database or a SQLite
// error from the local store.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	Driver     string `json:"driver,omitempty"`
	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Detail     string `json:"detail,omitempty"`
	DBMessage  string `json:"db_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if coded := As(err); coded != nil {
		d.Code = coded.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	var liteErr sqlite3.Error
	switch {
	case errors.As(err, &pgxErr):
		d.Driver = "pgx"
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Detail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.Driver = "pq"
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Detail = pqErr.Detail
		d.DBMessage = pqErr.Message
	case errors.As(err, &liteErr):
		d.Driver = "sqlite"
		d.SQLState = liteErr.ExtendedCode.Error()
		d.DBMessage = liteErr.Error()
	}
	return d
}

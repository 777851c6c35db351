package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"gearguard-backend/internal/apperr"
)

// translateSQL maps gorm and driver errors onto the apperr taxonomy.
func translateSQL(backend, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.Known(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	if isDuplicate(err) {
		return &apperr.ConflictError{Entity: entity, ID: id, Reason: "duplicate value for a unique field", Count: 1}
	}
	if isSQLConnectivity(err) {
		return apperr.Unreachable(backend, err)
	}
	return apperr.Unexpected(fmt.Errorf("%s %s: %w", backend, entity, err))
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isSQLConnectivity(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/logger"
)

// WithinTransaction runs fn inside a transaction. The transaction is committed
// when fn returns nil and rolled back otherwise, including on panic.
func WithinTransaction(ctx context.Context, beginner TxBeginner, fn func(tx pgx.Tx) error) (err error) {
	tx, err := beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.ErrorLogger.Errorf("Failed to roll back transaction: %v", rbErr)
			}
			return
		}
		if cErr := tx.Commit(ctx); cErr != nil {
			err = fmt.Errorf("commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}

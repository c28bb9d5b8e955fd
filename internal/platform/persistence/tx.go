package persistence

import "github.com/jackc/pgx/v5"

// TxBinder is implemented by every repository: WithTx returns a copy bound to tx.
type TxBinder[R any] interface {
	WithTx(tx pgx.Tx) R
}

// Bind returns repo bound to tx, or repo itself when tx is nil.
func Bind[R TxBinder[R]](repo R, tx pgx.Tx) R {
	if tx == nil {
		return repo
	}
	return repo.WithTx(tx)
}

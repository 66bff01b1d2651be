package service

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"turtle_bot/internal/models"
	"turtle_bot/pkg/db"
	"turtle_bot/pkg/logger"
)

const insertSnapshot = `
INSERT INTO position_snapshots (inst_id, state, direction, system, transition, equity, at, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Store пишет снапшоты позиций после каждого перехода. Без базы (nil
// менеджер) снапшот остаётся только в логе — для реплея этого достаточно.
type Store struct {
	tm *db.PgTxManager
}

func NewStore(tm *db.PgTxManager) *Store {
	return &Store{tm: tm}
}

func (s *Store) Save(ctx context.Context, snap models.PositionSnapshot) error {
	payload, err := sonic.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	if s.tm == nil {
		logger.Info("[SNAPSHOT] %s", string(payload))
		return nil
	}

	return s.tm.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertSnapshot,
			snap.InstID, snap.State, string(snap.Direction), string(snap.System),
			string(snap.Transition), snap.Equity, snap.At, payload)
		return errors.Wrapf(err, "insert snapshot %s", snap.InstID)
	})
}

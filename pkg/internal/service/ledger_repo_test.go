package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/service"
)

func TestMutateReappliesAfterConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-20")
	repo := service.NewLedgerRepository(env.db, 3)

	calls := 0

	next, err := repo.Mutate(ctx, ref, func(cur model.Ledger) (model.Ledger, bool, error) {
		calls++
		if calls == 1 {
			// 另一个写者在读与写之间提交
			require.NoError(t, env.db.Exec(`UPDATE cases SET evidence_files = ?, version = version + 1 WHERE id = ?`, `["other.txt"]`, ref.ID).Error)
		}

		return cur.Append(model.LegacyEntry("mine.txt")), true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"other.txt", "mine.txt"}, next.Filenames())

	ledger, version, err := repo.Load(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"other.txt", "mine.txt"}, ledger.Filenames())
	assert.Equal(t, int64(2), version)
}

func TestMutateGivesUpAfterAttempts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-21")
	repo := service.NewLedgerRepository(env.db, 2)

	calls := 0

	_, err := repo.Mutate(ctx, ref, func(cur model.Ledger) (model.Ledger, bool, error) {
		calls++
		require.NoError(t, env.db.Exec(`UPDATE cases SET version = version + 1 WHERE id = ?`, ref.ID).Error)

		return cur.Append(model.LegacyEntry("x")), true, nil
	})
	require.ErrorIs(t, err, service.ErrConflict)
	assert.Equal(t, http.StatusConflict, service.MapHTTPStatus(err))
	assert.Equal(t, 2, calls)

	ledger, _, err := repo.Load(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestMutateUnchangedSkipsWrite(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-22")
	repo := service.NewLedgerRepository(env.db, 0)

	_, err := repo.Mutate(ctx, ref, func(cur model.Ledger) (model.Ledger, bool, error) {
		return cur, false, nil
	})
	require.NoError(t, err)

	_, version, err := repo.Load(ctx, ref)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestLoadMissingOwner(t *testing.T) {
	env := newTestEnv(t)
	repo := service.NewLedgerRepository(env.db, 1)

	_, _, err := repo.Load(context.Background(), model.OwnerRef{Kind: model.KindIncident, ID: 5})
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "Incident not found", err.Error())

	err = repo.Exists(context.Background(), model.OwnerRef{Kind: model.KindCase, ID: 5})
	assert.Equal(t, "Case not found", err.Error())
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

func TestStatistics_MonthlyScopes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	acme, err := env.users.CreateCompany(ctx, "Acme")
	require.NoError(t, err)

	admin := env.addUser(t, "admin", model.RoleAdmin, nil)
	alice := env.addUser(t, "alice", model.RoleUser, &acme.ID)
	bob := env.addUser(t, "bob", model.RoleUser, nil)
	client := env.addUser(t, "client", model.RoleClient, &acme.ID)
	loner := env.addUser(t, "loner", model.RoleClient, nil)

	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	inc := func(month time.Time, p model.Principal, times int) {
		for range times {
			require.NoError(t, env.store.Usage.Increment(ctx, month, p.UserID, p.CompanyID, nil))
		}
	}
	inc(march, alice, 3)
	inc(march, bob, 2)
	inc(march, loner, 1)
	inc(april, alice, 5)

	users := func(rows []model.UsageRow) map[string]int64 {
		out := make(map[string]int64)
		for _, r := range rows {
			out[r.Username] = r.Count
		}
		return out
	}

	rows, err := env.stats.Monthly(ctx, admin, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 3, "bob": 2, "loner": 1}, users(rows))

	rows, err = env.stats.Monthly(ctx, client, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 3}, users(rows), "клиент видит свою компанию")

	rows, err = env.stats.Monthly(ctx, loner, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"loner": 1}, users(rows), "клиент без компании видит себя")

	rows, err = env.stats.Monthly(ctx, bob, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"bob": 2}, users(rows))

	rows, err = env.stats.Monthly(ctx, bob, 2024, 4)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestStatistics_MonthlyValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.addUser(t, "alice", model.RoleUser, nil)

	for _, tt := range []struct{ year, month int }{{2024, 0}, {2024, 13}, {1999, 5}, {10000, 5}} {
		_, err := env.stats.Monthly(context.Background(), p, tt.year, tt.month)
		assert.ErrorIs(t, err, ErrValidation, "%d-%d", tt.year, tt.month)
	}
}

func TestMonthStart(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got := monthStart(time.Date(2024, time.March, 1, 1, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), got)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/ttsstudio/internal/domain/model"
)

func TestSessions_LoginAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "alice", model.RoleUser, nil)
	ctx := context.Background()

	sess, user, err := env.sessions.Login(ctx, " alice ", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.UserID, user.ID)
	assert.NotEmpty(t, sess.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	p, err := env.sessions.Authenticate(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, p.UserID)
	assert.Equal(t, model.RoleUser, p.Role)

	cur, err := env.sessions.Current(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "alice", cur.Username)
}

func TestSessions_LoginErrors(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", model.RoleUser, nil)
	bob := env.addUser(t, "bob", model.RoleUser, nil)
	require.NoError(t, env.store.Users.SetActive(context.Background(), bob.UserID, false))

	tests := []struct {
		name     string
		username string
		password string
		want     error
	}{
		{"пустые поля", "", "", ErrValidation},
		{"нет пароля", "alice", "", ErrValidation},
		{"неизвестный пользователь", "carol", "secret", ErrNotFound},
		{"деактивирован", "bob", "secret", ErrValidation},
		{"неверный пароль", "alice", "wrong", ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.sessions.Login(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, env.db.sessions)
}

func TestSessions_AuthenticateRejects(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "alice", model.RoleUser, nil)
	ctx := context.Background()

	env.db.sessions["expired"] = &model.Session{ID: "expired", UserID: u.UserID, ExpiresAt: time.Now().Add(-time.Minute)}
	env.db.sessions["orphan"] = &model.Session{ID: "orphan", UserID: 9999, ExpiresAt: time.Now().Add(time.Hour)}

	for _, id := range []string{"", "missing", "expired", "orphan"} {
		_, err := env.sessions.Authenticate(ctx, id)
		assert.ErrorIs(t, err, ErrUnauthorized, "session %q", id)
	}

	sess, _, err := env.sessions.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	env.db.users[u.UserID].Active = false
	_, err = env.sessions.Authenticate(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessions_Logout(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", model.RoleUser, nil)
	ctx := context.Background()

	sess, _, err := env.sessions.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	require.NoError(t, env.sessions.Logout(ctx, sess.ID))
	require.NoError(t, env.sessions.Logout(ctx, sess.ID))
	require.NoError(t, env.sessions.Logout(ctx, ""))

	_, err = env.sessions.Authenticate(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessions_PurgeExpired(t *testing.T) {
	env := newTestEnv(t)
	u := env.addUser(t, "alice", model.RoleUser, nil)
	ctx := context.Background()

	env.db.sessions["old"] = &model.Session{ID: "old", UserID: u.UserID, ExpiresAt: time.Now().Add(-time.Second)}
	env.db.sessions["live"] = &model.Session{ID: "live", UserID: u.UserID, ExpiresAt: time.Now().Add(time.Hour)}

	n, err := env.sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, env.db.sessions, "live")
}

func TestSessions_CleanupStops(t *testing.T) {
	env := newTestEnv(t)

	env.sessions.StartCleanup(context.Background(), time.Hour)
	done := make(chan struct{})
	go func() {
		env.sessions.StopCleanup()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopCleanup не завершился")
	}
}

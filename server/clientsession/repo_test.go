package clientsession_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
	"github.com/jrsteele09/go-finance-web/server/clientsession"
	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	repo := clientsession.NewInMemoryRepo()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := clientsession.New("a", nil, nil, storage.NewInMemoryStore(), start)
	b := clientsession.New("b", nil, nil, storage.NewInMemoryStore(), start)
	require.NoError(t, repo.Upsert(a))
	require.NoError(t, repo.Upsert(b))
	require.Error(t, repo.Upsert(&clientsession.Session{}))

	got, err := repo.Get("a")
	require.NoError(t, err)
	require.Same(t, a, got)

	_, err = repo.Get("missing")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	b.Touch(start.Add(2 * time.Hour))
	b.Touch(start.Add(time.Hour))
	require.Equal(t, start.Add(2*time.Hour), b.LastSeen(), "touch never moves backwards")

	idle := repo.DeleteIdle(start.Add(time.Hour))
	require.Len(t, idle, 1)
	require.Equal(t, "a", idle[0].ID)
	require.Equal(t, 1, repo.Count())

	require.NoError(t, repo.Delete("b"))
	require.NoError(t, repo.Delete("b"))
	require.Equal(t, 0, repo.Count())
}

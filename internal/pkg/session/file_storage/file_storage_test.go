package file_storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk_mail_client/internal/pkg/session/domain"
)

func TestFileStorage(t *testing.T) {
	memFs := afero.NewMemMapFs()
	path := "/home/user/.config/bulk-mail-client/session.json"
	storage := NewFileStorage(memFs, path)
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		stored, err := storage.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("save and get", func(t *testing.T) {
		require.NoError(t, storage.SaveSession(ctx, domain.Session{Email: "a@b.com", AccessToken: "T"}))

		stored, err := storage.GetSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "a@b.com", stored.Email)
		assert.Equal(t, "T", stored.AccessToken)

		raw, err := afero.ReadFile(memFs, path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"user_email"`)
		assert.Contains(t, string(raw), `"access_token"`)

		leftovers, err := afero.Glob(memFs, filepath.Join(filepath.Dir(path), "*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, leftovers, "temp file should be renamed away")
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, storage.SaveSession(ctx, domain.Session{Email: "c@d.com", AccessToken: "T2"}))

		stored, err := storage.GetSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, &domain.Session{Email: "c@d.com", AccessToken: "T2"}, stored)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, storage.DeleteSession(ctx))

		stored, err := storage.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, stored)

		// Deleting twice is fine.
		require.NoError(t, storage.DeleteSession(ctx))
	})

	t.Run("corrupt file", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(memFs, path, []byte("{not json"), 0600))

		_, err := storage.GetSession(ctx)
		require.Error(t, err)
	})
}

func TestFileStorage_ConcurrentSaves(t *testing.T) {
	memFs := afero.NewMemMapFs()
	path := "/home/user/.config/bulk-mail-client/session.json"
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate instances stand in for separate client processes.
			storage := NewFileStorage(memFs, path)
			errs <- storage.SaveSession(ctx, domain.Session{
				Email:       fmt.Sprintf("user%d@example.com", i),
				AccessToken: fmt.Sprintf("T%d", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	raw, err := afero.ReadFile(memFs, path)
	require.NoError(t, err)
	var values map[string]string
	require.NoError(t, json.Unmarshal(raw, &values), "last writer wins with a whole document")

	var i int
	_, err = fmt.Sscanf(values["user_email"], "user%d@example.com", &i)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("T%d", i), values["access_token"], "keys come from the same save")

	leftovers, err := afero.Glob(memFs, filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

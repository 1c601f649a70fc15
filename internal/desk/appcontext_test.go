package desk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRejectEmailWithoutNotifications(t *testing.T) {
	app := NewAppContext(ThemeLight, Branch{ID: 1})
	before := app.Settings()

	err := app.SetSettings(Settings{ThemeMode: ThemeLight, NotificationsEnabled: false, EmailUpdates: true})
	require.ErrorIs(t, err, ErrEmailRequiresNotifications)
	assert.Equal(t, before, app.Settings())

	require.NoError(t, app.SetSettings(Settings{ThemeMode: ThemeDark, NotificationsEnabled: true, EmailUpdates: true}))
	assert.Equal(t, ThemeDark, app.Settings().ThemeMode)
}

func TestSettingsRejectUnknownTheme(t *testing.T) {
	app := NewAppContext(ThemeLight, Branch{ID: 1})
	assert.ErrorIs(t, app.SetSettings(Settings{ThemeMode: "sepia"}), ErrInvalidTheme)
}

func TestBranchSelection(t *testing.T) {
	app := NewAppContext(ThemeLight, Branch{ID: 1, Name: "Central"})
	assert.Equal(t, int64(1), app.BranchID())

	assert.ErrorIs(t, app.SetBranch(Branch{ID: 0}), ErrInvalidBranch)
	assert.Equal(t, "Central", app.Branch().Name)

	require.NoError(t, app.SetBranch(Branch{ID: 3, Name: "East"}))
	assert.Equal(t, Branch{ID: 3, Name: "East"}, app.Branch())
}

func TestAppContextConcurrentAccess(t *testing.T) {
	app := NewAppContext(ThemeLight, Branch{ID: 1})

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			app.SetBranch(Branch{ID: int64(i)})
		}()
		go func() {
			defer wg.Done()
			assert.Positive(t, app.BranchID())
		}()
	}
	wg.Wait()
}

func TestSessionsSweepIdle(t *testing.T) {
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	s := NewSessions(func(id string) string { return "wizard-" + id })
	s.now = func() time.Time { return now }

	oldID, _ := s.Create()
	now = now.Add(90 * time.Minute)
	freshID, value := s.Create()
	assert.Equal(t, "wizard-"+freshID, value)

	assert.Equal(t, 1, s.Sweep(time.Hour))
	_, err := s.Get(oldID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(freshID)
	assert.NoError(t, err)
}

func TestSessionsGetRefreshesIdleClock(t *testing.T) {
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	s := NewSessions(func(string) int { return 0 })
	s.now = func() time.Time { return now }

	id, _ := s.Create()
	now = now.Add(50 * time.Minute)
	_, err := s.Get(id)
	require.NoError(t, err)
	now = now.Add(50 * time.Minute)

	assert.Zero(t, s.Sweep(time.Hour))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Delete(id))
	assert.ErrorIs(t, s.Delete(id), ErrSessionNotFound)
}

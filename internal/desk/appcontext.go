package desk

import (
	"errors"
	"sync"
)

var (
	ErrEmailRequiresNotifications = errors.New("email updates require notifications to be enabled")
	ErrInvalidTheme               = errors.New("theme mode must be light or dark")
	ErrInvalidBranch              = errors.New("branch ID must be positive")
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Settings are the user preferences shown on the settings page.
type Settings struct {
	ThemeMode            string `json:"theme_mode"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	EmailUpdates         bool   `json:"email_updates"`
}

func (s Settings) validate() error {
	if s.ThemeMode != ThemeLight && s.ThemeMode != ThemeDark {
		return ErrInvalidTheme
	}
	if s.EmailUpdates && !s.NotificationsEnabled {
		return ErrEmailRequiresNotifications
	}
	return nil
}

// Branch is the library branch the desk is operating for.
type Branch struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// AppContext holds the process-wide settings and current branch.
type AppContext struct {
	mu       sync.RWMutex
	settings Settings
	branch   Branch
}

func NewAppContext(themeMode string, branch Branch) *AppContext {
	return &AppContext{
		settings: Settings{ThemeMode: themeMode, NotificationsEnabled: true},
		branch:   branch,
	}
}

func (a *AppContext) Settings() Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// SetSettings replaces the settings. Invalid settings are rejected and the
// previous ones kept.
func (a *AppContext) SetSettings(s Settings) error {
	if err := s.validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = s
	return nil
}

func (a *AppContext) Branch() Branch {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.branch
}

// BranchID returns the current branch ID, or 0 when none is selected.
func (a *AppContext) BranchID() int64 {
	return a.Branch().ID
}

func (a *AppContext) SetBranch(b Branch) error {
	if b.ID <= 0 {
		return ErrInvalidBranch
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.branch = b
	return nil
}

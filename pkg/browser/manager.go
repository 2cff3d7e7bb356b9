// Package browser attaches to remote browser profiles over their
// connection descriptors and drives them with humanized input. It does
// not launch browsers itself: profiles run on the provider's
// infrastructure, and this package only connects to what a session
// start already provisioned.
package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/flock/pkg/humanize"
	"github.com/entrhq/flock/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("browser")
	if err != nil {
		debugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// DefaultMaxAttachments bounds how many remote profiles one process
// drives at once.
const DefaultMaxAttachments = 10

// Manager tracks attached remote sessions keyed by profile id.
type Manager struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	playwright     *playwright.Playwright
	human          *humanize.Engine
	maxAttachments int
	initialized    bool
}

// NewManager creates a Manager. human may be nil, in which case a
// default engine is used.
func NewManager(human *humanize.Engine) *Manager {
	if human == nil {
		human = humanize.New()
	}
	return &Manager{
		sessions:       make(map[string]*Session),
		human:          human,
		maxAttachments: DefaultMaxAttachments,
	}
}

// Initialize installs and starts the Playwright driver. Must be called
// before Attach.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright driver: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright driver: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Attach connects to the remote profile's browser over its connection
// descriptor and wraps its first page in a Session. The remote side must
// already be running; Attach never starts anything.
func (m *Manager) Attach(profileID, endpoint string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("browser manager not initialized")
	}
	if _, exists := m.sessions[profileID]; exists {
		return nil, fmt.Errorf("profile %q is already attached", profileID)
	}
	if len(m.sessions) >= m.maxAttachments {
		return nil, fmt.Errorf("maximum number of attachments (%d) reached", m.maxAttachments)
	}

	remote, err := m.playwright.Chromium.ConnectOverCDP(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", profileID, err)
	}

	page, err := firstPage(remote)
	if err != nil {
		remote.Close()
		return nil, fmt.Errorf("failed to open page for %s: %w", profileID, err)
	}

	session := newSession(profileID, endpoint, remote, page, m.human)
	m.sessions[profileID] = session

	debugLog.Infof("attached to profile %s at %s", profileID, endpoint)
	return session, nil
}

// firstPage reuses the remote browser's existing page when one is open,
// otherwise opens a fresh one in its default context.
func firstPage(remote playwright.Browser) (playwright.Page, error) {
	contexts := remote.Contexts()
	if len(contexts) == 0 {
		context, err := remote.NewContext()
		if err != nil {
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
		return context.NewPage()
	}

	if pages := contexts[0].Pages(); len(pages) > 0 {
		return pages[0], nil
	}
	return contexts[0].NewPage()
}

// Get returns the attached session for a profile.
func (m *Manager) Get(profileID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[profileID]
	if !exists {
		return nil, fmt.Errorf("profile %q is not attached", profileID)
	}
	return session, nil
}

// Detach disconnects from the remote profile. The remote browser keeps
// running; only this process's connection is released.
func (m *Manager) Detach(profileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[profileID]
	if !exists {
		return fmt.Errorf("profile %q is not attached", profileID)
	}

	delete(m.sessions, profileID)
	if err := session.close(); err != nil {
		return fmt.Errorf("failed to detach from %s: %w", profileID, err)
	}

	debugLog.Infof("detached from profile %s", profileID)
	return nil
}

// AttachmentInfo describes one attached session.
type AttachmentInfo struct {
	ProfileID  string
	Endpoint   string
	CurrentURL string
	AttachedAt time.Time
	LastUsedAt time.Time
}

// List returns metadata for all attached sessions.
func (m *Manager) List() []AttachmentInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]AttachmentInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, session.info())
	}
	return infos
}

// HasAttachments reports whether any session is attached.
func (m *Manager) HasAttachments() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions) > 0
}

// DetachAll disconnects every attached session, collecting errors rather
// than stopping at the first.
func (m *Manager) DetachAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for profileID, session := range m.sessions {
		if err := session.close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", profileID, err))
		}
		delete(m.sessions, profileID)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors detaching sessions: %v", errs)
	}
	return nil
}

// Shutdown detaches everything and stops the Playwright driver.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for profileID, session := range m.sessions {
		if err := session.close(); err != nil {
			debugLog.Errorf("failed to detach from %s during shutdown: %v", profileID, err)
		}
		delete(m.sessions, profileID)
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright driver: %w", err)
		}
		m.initialized = false
	}
	return nil
}

// SetMaxAttachments adjusts the concurrent attachment limit.
func (m *Manager) SetMaxAttachments(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAttachments = max
}

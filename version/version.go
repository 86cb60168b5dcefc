// Package version tracks successive states of edited content and provides
// linear undo/redo navigation between them.
package version

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentVersion is one snapshot of the edited content.
type ContentVersion struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary,omitempty"` // set on AI rewrites only
	CreatedAt   time.Time `json:"createdAt"`
	AIGenerated bool      `json:"isAiGenerated"`
}

// History is the ordered list of versions plus the index of the current one.
// Versions[0] is always the baseline.
type History struct {
	Versions     []ContentVersion `json:"versions"`
	CurrentIndex int              `json:"currentVersionIndex"`
}

// Manager owns a History and is the only thing that mutates it.
// A Manager belongs to one editor surface and is not safe for concurrent use.
type Manager struct {
	history  History
	original string
	now      func() time.Time
}

// New returns a manager seeded with a single baseline version.
func New(content string) *Manager {
	m := &Manager{now: time.Now}
	m.Reset(content)
	return m
}

// newID returns "v_<unix millis>_<random suffix>".
func newID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("v_%d_%s", t.UnixMilli(), suffix)
}

func (m *Manager) newVersion(content, summary string, aiGenerated bool) ContentVersion {
	t := m.now()
	return ContentVersion{
		ID:          newID(t),
		Content:     content,
		Summary:     summary,
		CreatedAt:   t,
		AIGenerated: aiGenerated,
	}
}

// Reset replaces the whole history with a fresh baseline holding content.
func (m *Manager) Reset(content string) {
	m.original = content
	m.history = History{
		Versions:     []ContentVersion{m.newVersion(content, "", false)},
		CurrentIndex: 0,
	}
}

// UpdateCurrent overwrites the content of the current version in place.
// Nothing else changes; live edits never create versions.
func (m *Manager) UpdateCurrent(content string) {
	m.history.Versions[m.history.CurrentIndex].Content = content
}

// Add appends a new version after the current one and makes it current.
// Any versions after the current index are discarded first.
func (m *Manager) Add(content, summary string, aiGenerated bool) ContentVersion {
	v := m.newVersion(content, summary, aiGenerated)
	keep := m.history.Versions[:m.history.CurrentIndex+1]
	versions := make([]ContentVersion, len(keep), len(keep)+1)
	copy(versions, keep)
	m.history.Versions = append(versions, v)
	m.history.CurrentIndex = len(m.history.Versions) - 1
	return v
}

// Previous moves one version back. It is a no-op at the baseline.
func (m *Manager) Previous() bool {
	if !m.CanGoBack() {
		return false
	}
	m.history.CurrentIndex--
	return true
}

// Next moves one version forward. It is a no-op at the newest version.
func (m *Manager) Next() bool {
	if !m.CanGoForward() {
		return false
	}
	m.history.CurrentIndex++
	return true
}

// CanGoBack reports whether Previous would move.
func (m *Manager) CanGoBack() bool {
	return m.history.CurrentIndex > 0
}

// CanGoForward reports whether Next would move.
func (m *Manager) CanGoForward() bool {
	return m.history.CurrentIndex < len(m.history.Versions)-1
}

// Current returns the current version.
func (m *Manager) Current() ContentVersion {
	return m.history.Versions[m.history.CurrentIndex]
}

// CurrentContent returns the text of the current version, or "" if the
// history is somehow empty.
func (m *Manager) CurrentContent() string {
	if m.history.CurrentIndex < 0 || m.history.CurrentIndex >= len(m.history.Versions) {
		return ""
	}
	return m.history.Versions[m.history.CurrentIndex].Content
}

// Total returns the number of versions.
func (m *Manager) Total() int {
	return len(m.history.Versions)
}

// CurrentNumber returns the 1-based position of the current version.
func (m *Manager) CurrentNumber() int {
	return m.history.CurrentIndex + 1
}

// Original returns the content the history was last seeded with. Edits to
// the baseline version do not change it.
func (m *Manager) Original() string {
	return m.original
}

// History returns a copy of the underlying history.
func (m *Manager) History() History {
	versions := make([]ContentVersion, len(m.history.Versions))
	copy(versions, m.history.Versions)
	return History{Versions: versions, CurrentIndex: m.history.CurrentIndex}
}

// Label renders the position for display, e.g. "2/3".
func (m *Manager) Label() string {
	return fmt.Sprintf("%d/%d", m.CurrentNumber(), m.Total())
}

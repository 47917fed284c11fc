package session

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"studymate-be/internal/pkg/logger"
	"studymate-be/pkg/apperr"
	"studymate-be/pkg/store"

	"github.com/gabriel-vasile/mimetype"
)

const (
	DefaultRecentTurns = 4
	DefaultMaxPages    = 100

	acceptedExtension = ".pdf"
	acceptedMIME      = "application/pdf"

	idTimeLayout = "20060102_150405.000000"
)

// Extractor turns a stored document into plain text. Partial text may accompany an error.
type Extractor interface {
	Extract(filePath string, maxPages int) (string, error)
}

// UploadStore is the durable home of uploaded originals, keyed by book id.
type UploadStore interface {
	Save(id string, data []byte) error
	Remove(id string) error
	Exists(id string) bool
	Path(id string) string
}

// Manager is the only component allowed to create, mutate or delete book records and turns.
// It holds no session state itself; every operation receives the session it acts on.
type Manager struct {
	extractor   Extractor
	uploads     UploadStore
	logger      logger.ILogger
	recentTurns int
	maxPages    int
	now         func() time.Time
}

type Option func(*Manager)

func WithRecentTurns(k int) Option {
	return func(m *Manager) {
		if k > 0 {
			m.recentTurns = k
		}
	}
}

func WithMaxPages(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxPages = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new session state manager
func NewManager(extractor Extractor, uploads UploadStore, log logger.ILogger, opts ...Option) *Manager {
	m := &Manager{
		extractor:   extractor,
		uploads:     uploads,
		logger:      log,
		recentTurns: DefaultRecentTurns,
		maxPages:    DefaultMaxPages,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterUpload validates, stores and extracts a new document, then makes it current.
// When extraction produces nothing the raw file stays on disk and the error carries its
// book_id, so a later switch can retry.
func (m *Manager) RegisterUpload(s *store.Session, data []byte, originalName string) (*store.BookRecord, error) {
	if !strings.EqualFold(filepath.Ext(originalName), acceptedExtension) {
		return nil, apperr.InvalidUpload(fmt.Sprintf("only %s files are accepted", acceptedExtension))
	}
	if len(data) == 0 || !mimetype.Detect(data).Is(acceptedMIME) {
		return nil, apperr.InvalidUpload("file is not a readable PDF document")
	}

	now := m.now()
	id := m.newBookID(s, now, originalName)

	if err := m.uploads.Save(id, data); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store upload", err)
	}

	text, extractErr := m.extract(id)
	if extractErr != nil {
		return nil, extractErr.WithDetail("book_id", id)
	}

	book := &store.BookRecord{
		ID:            id,
		OriginalName:  originalName,
		UploadTime:    now,
		LastAccessed:  now,
		ExtractedText: text,
		ChatHistory:   []store.Turn{},
	}
	m.insert(s, book)

	m.logger.Info("SESSION", "Book registered", map[string]interface{}{
		"session_id": s.ID,
		"book_id":    id,
		"chars":      len(text),
	})
	return book, nil
}

// GetCurrent returns the active book, or NotFound when the pointer is unset or dangling.
func (m *Manager) GetCurrent(s *store.Session) (*store.BookRecord, error) {
	if s.CurrentBook == nil {
		return nil, apperr.NotFound("no active book")
	}
	book, ok := s.BookHistory[*s.CurrentBook]
	if !ok {
		return nil, apperr.NotFound("active book no longer exists")
	}
	return book, nil
}

// SwitchCurrent activates id, lazily re-importing it from storage if the session lost it.
func (m *Manager) SwitchCurrent(s *store.Session, id string) (*store.BookRecord, error) {
	book, ok := s.BookHistory[id]
	if !ok {
		if !m.uploads.Exists(id) {
			return nil, apperr.NotFound(fmt.Sprintf("book %s not found", id))
		}

		text, extractErr := m.extract(id)
		if extractErr != nil {
			return nil, extractErr
		}
		now := m.now()
		book = &store.BookRecord{
			ID:            id,
			OriginalName:  originalNameFromID(id),
			UploadTime:    now,
			LastAccessed:  now,
			ExtractedText: text,
			ChatHistory:   []store.Turn{},
		}
		m.logger.Info("SESSION", "Book re-imported from storage", map[string]interface{}{
			"session_id": s.ID,
			"book_id":    id,
		})
	}

	book.LastAccessed = m.now()
	m.insert(s, book)
	return book, nil
}

// AppendTurn records one exchange. Two identical calls are two real exchanges.
func (m *Manager) AppendTurn(s *store.Session, id string, turn store.Turn) error {
	book, ok := s.BookHistory[id]
	if !ok {
		return apperr.NotFound(fmt.Sprintf("book %s not found", id))
	}
	if turn.Status == "" {
		turn.Status = store.TurnStatusOK
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = m.now()
	}
	book.ChatHistory = append(book.ChatHistory, turn)
	s.UpdatedAt = m.now()
	return nil
}

func (m *Manager) ClearHistory(s *store.Session, id string) error {
	book, ok := s.BookHistory[id]
	if !ok {
		return apperr.NotFound(fmt.Sprintf("book %s not found", id))
	}
	book.ChatHistory = []store.Turn{}
	s.UpdatedAt = m.now()
	return nil
}

// DeleteBook removes the file first; the session is only touched once that succeeded,
// so a storage failure leaves everything as it was.
func (m *Manager) DeleteBook(s *store.Session, id string) error {
	if err := m.RemoveUpload(id); err != nil {
		return err
	}
	m.ForgetBook(s, id)
	return nil
}

// ForgetBook drops the record and every pointer to it, leaving storage alone.
// Pair it with RemoveUpload once the session has been stored.
func (m *Manager) ForgetBook(s *store.Session, id string) {
	m.forget(s, id)
	s.UpdatedAt = m.now()
}

// RemoveUpload deletes the stored original. A missing file is not an error.
func (m *Manager) RemoveUpload(id string) error {
	if err := m.uploads.Remove(id); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete book file", err)
	}
	return nil
}

// BuildContextWindow renders the last K turns followed by the full extracted text and
// cuts the combined string at maxChars characters. The tail of the text is what gets lost
// first. maxChars <= 0 disables the cut.
func (m *Manager) BuildContextWindow(s *store.Session, id string, maxChars int) (string, error) {
	book, ok := s.BookHistory[id]
	if !ok {
		return "", apperr.NotFound(fmt.Sprintf("book %s not found", id))
	}

	turns := book.ChatHistory
	if len(turns) > m.recentTurns {
		turns = turns[len(turns)-m.recentTurns:]
	}

	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString("Q: ")
		sb.WriteString(t.Question)
		sb.WriteString("\n")
		sb.WriteString("A: ")
		sb.WriteString(t.Answer)
		sb.WriteString("\n")
	}
	sb.WriteString(book.ExtractedText)

	return Truncate(sb.String(), maxChars), nil
}

// ReconcileWithStorage drops every record whose backing file is gone. Idempotent.
func (m *Manager) ReconcileWithStorage(s *store.Session, existingIDs map[string]struct{}) []string {
	removed := []string{}
	for id := range s.BookHistory {
		if _, ok := existingIDs[id]; !ok {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)

	for _, id := range removed {
		m.forget(s, id)
	}
	if len(removed) > 0 {
		s.UpdatedAt = m.now()
	}
	return removed
}

// ListBooks returns the session's books, most recently accessed first.
func (m *Manager) ListBooks(s *store.Session) []*store.BookRecord {
	books := make([]*store.BookRecord, 0, len(s.BookHistory))
	for _, b := range s.BookHistory {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].LastAccessed.Equal(books[j].LastAccessed) {
			return books[i].ID > books[j].ID
		}
		return books[i].LastAccessed.After(books[j].LastAccessed)
	})
	return books
}

// Truncate cuts s to at most maxChars characters (runes). No word boundaries are respected.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == maxChars {
			return s[:i]
		}
		count++
	}
	return s
}

func (m *Manager) extract(id string) (string, *apperr.Error) {
	text, err := m.extractor.Extract(m.uploads.Path(id), m.maxPages)
	if err != nil {
		if text == "" {
			m.logger.Error("SESSION", "Extraction failed", map[string]interface{}{"book_id": id, "error": err})
			return "", apperr.Wrap(apperr.KindExtractionFailed, "could not extract text from document", err)
		}
		m.logger.Warn("SESSION", "Extraction degraded, keeping partial text", map[string]interface{}{
			"book_id": id,
			"chars":   len(text),
			"error":   err.Error(),
		})
	}
	return text, nil
}

func (m *Manager) insert(s *store.Session, book *store.BookRecord) {
	if s.BookHistory == nil {
		s.BookHistory = make(map[string]*store.BookRecord)
	}
	s.BookHistory[book.ID] = book
	id := book.ID
	s.CurrentBook = &id
	s.RecentBooks = pushRecent(s.RecentBooks, id)
	s.UpdatedAt = m.now()
}

func (m *Manager) forget(s *store.Session, id string) {
	delete(s.BookHistory, id)
	if s.CurrentBook != nil && *s.CurrentBook == id {
		s.CurrentBook = nil
	}
	s.RecentBooks = removeString(s.RecentBooks, id)
}

// newBookID encodes the upload time and a sanitized name. The timestamp is bumped
// by a microsecond until the id is free both in the session and on disk.
func (m *Manager) newBookID(s *store.Session, at time.Time, originalName string) string {
	name := sanitizeName(originalName)
	for {
		id := at.Format(idTimeLayout) + "_" + name
		_, taken := s.BookHistory[id]
		if !taken && !m.uploads.Exists(id) {
			return id
		}
		at = at.Add(time.Microsecond)
	}
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// maxNameBytes keeps timestamp prefix plus name under the usual 255 byte file name limit.
const maxNameBytes = 200

func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" || strings.EqualFold(base, "pdf") {
		return "document" + acceptedExtension
	}
	if len(base) > maxNameBytes {
		ext := filepath.Ext(base)
		if len(ext) > 10 {
			ext = ""
		}
		stem := strings.TrimRight(base[:maxNameBytes-len(ext)], "._")
		if stem == "" {
			stem = "document"
		}
		base = stem + ext
	}
	return base
}

var idPrefix = regexp.MustCompile(`^\d{8}_\d{6}(\.\d{6})?_`)

func originalNameFromID(id string) string {
	if name := idPrefix.ReplaceAllString(id, ""); name != "" {
		return name
	}
	return id
}

func pushRecent(recent []string, id string) []string {
	out := make([]string, 0, store.MaxRecentBooks)
	out = append(out, id)
	for _, r := range recent {
		if r == id {
			continue
		}
		if len(out) == store.MaxRecentBooks {
			break
		}
		out = append(out, r)
	}
	return out
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

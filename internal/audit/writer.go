package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LogFileName is the name of the active journal file.
const LogFileName = "bookshelf-audit.jsonl"

// Recorder accepts catalog events.
type Recorder interface {
	Record(event Event) error
}

// NopRecorder discards every event. It is used when the journal is disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(Event) error { return nil }

// Writer appends events to the journal.
// Every write is flushed and synced before returning; a failed write is
// reported to the caller rather than retried.
type Writer struct {
	mu              sync.Mutex
	file            *os.File
	writer          *bufio.Writer
	logPath         string
	session         SessionID
	config          Config
	rotationManager *RotationManager
}

// NewWriter creates the log directory if needed and opens the journal for
// appending. A brand-new journal starts with a LOG_INITIALIZED event.
func NewWriter(config Config) (*Writer, error) {
	if err := os.MkdirAll(config.Directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(config.Directory, LogFileName)

	isNewLog := false
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		isNewLog = true
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	w := &Writer{
		file:            file,
		writer:          bufio.NewWriter(file),
		logPath:         logPath,
		config:          config,
		rotationManager: NewRotationManager(config),
	}

	if isNewLog {
		if err := w.writeEventLocked(Event{Timestamp: time.Now().UTC(), EventType: EventLogInitialized}); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write LOG_INITIALIZED event: %w", err)
		}
	}

	return w, nil
}

// NewSessionID generates a new UUID v4 session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// StartSession begins a new session and writes SESSION_START.
func (w *Writer) StartSession(appVersion string) (SessionID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session := NewSessionID()
	event := Event{
		Timestamp: time.Now().UTC(),
		SessionID: session,
		EventType: EventSessionStart,
		Metadata: map[string]string{
			"appVersion": appVersion,
		},
	}
	if host, err := os.Hostname(); err == nil {
		event.Metadata["host"] = host
	}

	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write SESSION_START event: %w", err)
	}

	w.session = session
	return session, nil
}

// Session returns the active session, or "" before StartSession.
func (w *Writer) Session() SessionID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Record writes an event, filling in the timestamp and active session when unset.
func (w *Writer) Record(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = w.session
	}
	return w.writeEventLocked(event)
}

// EndSession writes SESSION_END for the active session.
func (w *Writer) EndSession() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session == "" {
		return nil
	}

	event := Event{
		Timestamp: time.Now().UTC(),
		SessionID: w.session,
		EventType: EventSessionEnd,
	}
	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write SESSION_END event: %w", err)
	}

	w.session = ""
	return nil
}

// writeEventLocked writes one JSON line and syncs it to disk.
func (w *Writer) writeEventLocked(event Event) error {
	data, err := event.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if _, err := w.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}

	if event.EventType != EventRotation {
		if err := w.checkAndRotate(); err != nil {
			return fmt.Errorf("failed to check/perform rotation: %w", err)
		}
	}

	return nil
}

// checkAndRotate rotates the active log once it reaches the configured size.
// The ROTATION event is the last line of the old segment.
func (w *Writer) checkAndRotate() error {
	needsRotation, err := w.rotationManager.NeedsRotation(w.logPath)
	if err != nil || !needsRotation {
		return err
	}

	rotatedFilename := w.rotationManager.GenerateRotatedFilename()
	rotation := Event{
		Timestamp: time.Now().UTC(),
		SessionID: w.session,
		EventType: EventRotation,
		Metadata: map[string]string{
			"previousLog": filepath.Base(w.logPath),
			"rotatedTo":   rotatedFilename,
		},
	}
	if err := w.writeEventLocked(rotation); err != nil {
		return err
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close file for rotation: %w", err)
	}

	if err := w.rotationManager.RotateWithFilename(w.logPath, rotatedFilename); err != nil {
		return fmt.Errorf("failed to rotate log: %w", err)
	}

	file, err := os.OpenFile(w.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new log file after rotation: %w", err)
	}

	w.file = file
	w.writer = bufio.NewWriter(file)
	return nil
}

// LogPath returns the path of the active journal file.
func (w *Writer) LogPath() string {
	return w.logPath
}

// Close flushes any buffered data and closes the journal.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}

package audit

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"time"
)

// EventFilter defines criteria for filtering events. Zero fields match everything.
type EventFilter struct {
	EventTypes []EventType
	SessionID  SessionID
	User       string
	Since      *time.Time
}

// Reader reads events back from the journal, across rotated segments.
type Reader struct {
	logDir string
}

// NewReader creates a Reader for the given log directory.
func NewReader(logDir string) *Reader {
	return &Reader{logDir: logDir}
}

// ReadAll returns every event in chronological (file) order.
func (r *Reader) ReadAll() ([]Event, error) {
	logFiles, err := GetAllLogFiles(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get log files: %w", err)
	}

	events := []Event{}
	for _, logFile := range logFiles {
		fileEvents, err := readEventsFromFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read events from %s: %w", logFile, err)
		}
		events = append(events, fileEvents...)
	}
	return events, nil
}

// Filter returns the events matching filter.
func (r *Reader) Filter(filter EventFilter) ([]Event, error) {
	events, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	filtered := []Event{}
	for _, event := range events {
		if matchesFilter(event, filter) {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}

// Recent returns the last n catalog events (book added, rated, reloaded),
// oldest first. n <= 0 returns all of them.
func (r *Reader) Recent(n int) ([]Event, error) {
	events, err := r.Filter(EventFilter{
		EventTypes: []EventType{EventBookAdded, EventBookRated, EventCatalogReloaded},
	})
	if err != nil {
		return nil, err
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}

// ListSessions summarizes every session in the journal, oldest first.
func (r *Reader) ListSessions() ([]SessionInfo, error) {
	events, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	bySession := make(map[SessionID]*SessionInfo)
	for _, event := range events {
		if event.SessionID == "" {
			continue
		}
		info, ok := bySession[event.SessionID]
		if !ok {
			info = &SessionInfo{SessionID: event.SessionID, StartTime: event.Timestamp}
			bySession[event.SessionID] = info
		}

		switch event.EventType {
		case EventSessionStart:
			info.StartTime = event.Timestamp
			info.AppVersion = event.Metadata["appVersion"]
		case EventSessionEnd:
			end := event.Timestamp
			info.EndTime = &end
		case EventBookAdded:
			info.BooksAdded++
		case EventBookRated:
			info.BooksRated++
		case EventCatalogReloaded:
			info.Reloads++
		}
	}

	sessions := make([]SessionInfo, 0, len(bySession))
	for _, info := range bySession {
		sessions = append(sessions, *info)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.Before(sessions[j].StartTime)
	})
	return sessions, nil
}

func matchesFilter(event Event, filter EventFilter) bool {
	if len(filter.EventTypes) > 0 {
		found := false
		for _, et := range filter.EventTypes {
			if event.EventType == et {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filter.SessionID != "" && event.SessionID != filter.SessionID {
		return false
	}
	if filter.User != "" && event.User != filter.User {
		return false
	}
	if filter.Since != nil && event.Timestamp.Before(*filter.Since) {
		return false
	}

	return true
}

// readEventsFromFile reads all events from a single log file.
func readEventsFromFile(filePath string) ([]Event, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := UnmarshalJSONLine(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		events = append(events, *event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	return events, nil
}

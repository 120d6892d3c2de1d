// Package export renders a conversation as a downloadable document.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

// Format selects the export document type.
type Format string

const (
	JSON Format = "json"
	Text Format = "txt"
)

// ParseFormat maps a query value to a Format. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("export: unknown format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == Text {
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

const (
	isoLayout  = "2006-01-02T15:04:05.000Z"
	dateLayout = "1/2/2006"
	timeLayout = "1/2/2006, 3:04:05 PM"
	ruleWidth  = 50
)

// Entry is one exported message.
type Entry struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
}

// Document is the structured export.
type Document struct {
	ExportDate   string  `json:"exportDate"`
	MessageCount int     `json:"messageCount"`
	Messages     []Entry `json:"messages"`
}

func iso(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// Structured encodes messages, typing placeholders excluded, as indented JSON.
func Structured(messages []domain.Message, exportedAt time.Time) ([]byte, error) {
	kept := domain.WithoutTyping(messages)
	doc := Document{
		ExportDate:   iso(exportedAt),
		MessageCount: len(kept),
		Messages:     make([]Entry, 0, len(kept)),
	}
	for _, m := range kept {
		doc.Messages = append(doc.Messages, Entry{Role: m.Role, Content: m.Content, Timestamp: iso(m.Timestamp)})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode: %w", err)
	}
	return out, nil
}

// ParseStructured decodes a document produced by Structured.
func ParseStructured(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("export: decode: %w", err)
	}
	return doc, nil
}

// PlainText renders messages, typing placeholders excluded, as a readable
// transcript with timestamps in loc. A nil loc means time.Local.
func PlainText(messages []domain.Message, exportedAt time.Time, loc *time.Location) []byte {
	if loc == nil {
		loc = time.Local
	}
	var buf bytes.Buffer
	buf.WriteString("Chat Export - " + exportedAt.In(loc).Format(dateLayout) + "\n")
	buf.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	for i, m := range domain.WithoutTyping(messages) {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		speaker := "Assistant"
		if m.IsUser() {
			speaker = "You"
		}
		fmt.Fprintf(&buf, "[%s] %s: %s", m.Timestamp.In(loc).Format(timeLayout), speaker, m.Content)
	}
	return buf.Bytes()
}

// Render produces the document for f.
func Render(f Format, messages []domain.Message, exportedAt time.Time, loc *time.Location) ([]byte, error) {
	if f == Text {
		return PlainText(messages, exportedAt, loc), nil
	}
	return Structured(messages, exportedAt)
}

// FileName returns the download name, chat-export-YYYY-MM-DD.<ext>. The
// date is taken in loc, the zone PlainText uses for its header.
func FileName(f Format, exportedAt time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("chat-export-%s.%s", exportedAt.In(loc).Format(time.DateOnly), f)
}

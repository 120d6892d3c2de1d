package export

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/chatbot-ai/internal/domain"
)

var at = time.Date(2024, 3, 5, 14, 7, 9, 123_000_000, time.UTC)

func sample() []domain.Message {
	return []domain.Message{
		{ID: "1", Role: domain.RoleAssistant, Content: "Hello a!", Timestamp: at},
		{ID: "2", Role: domain.RoleUser, Content: "hi there", Timestamp: at.Add(time.Minute)},
		{ID: domain.TypingMessageID, Role: domain.RoleAssistant, Typing: true, Timestamp: at.Add(2 * time.Minute)},
	}
}

func TestStructured(t *testing.T) {
	out, err := Structured(sample(), at)
	require.NoError(t, err)

	want := `{
  "exportDate": "2024-03-05T14:07:09.123Z",
  "messageCount": 2,
  "messages": [
    {
      "role": "assistant",
      "content": "Hello a!",
      "timestamp": "2024-03-05T14:07:09.123Z"
    },
    {
      "role": "user",
      "content": "hi there",
      "timestamp": "2024-03-05T14:08:09.123Z"
    }
  ]
}`
	require.Equal(t, want, string(out))
}

func TestStructuredEmpty(t *testing.T) {
	out, err := Structured(nil, at)
	require.NoError(t, err)
	doc, err := ParseStructured(out)
	require.NoError(t, err)
	require.Zero(t, doc.MessageCount)
	require.NotNil(t, doc.Messages)
}

func TestStructuredRoundTrip(t *testing.T) {
	msgs := []domain.Message{{ID: "0", Role: domain.RoleAssistant, Content: "greeting", Timestamp: at}}
	for i := 0; i < 5; i++ {
		msgs = append(msgs,
			domain.Message{ID: "t", Role: domain.RoleAssistant, Typing: true, Timestamp: at},
			domain.Message{ID: "u", Role: domain.RoleUser, Content: "q", Timestamp: at},
			domain.Message{ID: "a", Role: domain.RoleAssistant, Content: "r", Timestamp: at},
		)
	}

	out, err := Structured(msgs, at)
	require.NoError(t, err)
	doc, err := ParseStructured(out)
	require.NoError(t, err)

	type pair struct {
		Role    domain.Role
		Content string
	}
	var want, got []pair
	for _, m := range domain.WithoutTyping(msgs) {
		want = append(want, pair{m.Role, m.Content})
	}
	for _, e := range doc.Messages {
		got = append(got, pair{e.Role, e.Content})
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, len(want), doc.MessageCount)
}

func TestPlainText(t *testing.T) {
	out := PlainText(sample(), at, time.UTC)
	want := "Chat Export - 3/5/2024\n" +
		"==================================================\n\n" +
		"[3/5/2024, 2:07:09 PM] Assistant: Hello a!\n\n" +
		"[3/5/2024, 2:08:09 PM] You: hi there"
	require.Equal(t, want, string(out))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": JSON, "json": JSON, "TXT": Text, "text": Text} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "chat-export-2024-03-05.json", FileName(JSON, at, time.UTC))
	require.Equal(t, "chat-export-2024-03-05.txt", FileName(Text, at, time.UTC))
}

func TestFileNameMatchesHeaderDate(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	lateEvening := time.Date(2024, 3, 6, 2, 30, 0, 0, time.UTC)

	header := strings.SplitN(string(PlainText(nil, lateEvening, est)), "\n", 2)[0]
	require.Equal(t, "Chat Export - 3/5/2024", header)
	require.Equal(t, "chat-export-2024-03-05.txt", FileName(Text, lateEvening, est))
	require.Equal(t, "chat-export-2024-03-06.txt", FileName(Text, lateEvening, time.UTC))
}

func TestRenderDispatches(t *testing.T) {
	txt, err := Render(Text, sample(), at, time.UTC)
	require.NoError(t, err)
	require.Contains(t, string(txt), "Chat Export - ")
	js, err := Render(JSON, sample(), at, time.UTC)
	require.NoError(t, err)
	require.Contains(t, string(js), `"exportDate"`)
}

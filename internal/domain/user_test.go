package domain

import "testing"

func TestNameFromEmail(t *testing.T) {
	cases := map[string]string{
		"a@b.com":           "a",
		"jane.doe@corp.io":  "jane.doe",
		"no-at-sign":        "no-at-sign",
		"two@at@signs.test": "two",
		"@leading.test":     "",
	}
	for in, want := range cases {
		if got := NameFromEmail(in); got != want {
			t.Errorf("NameFromEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWithoutTyping(t *testing.T) {
	msgs := []Message{
		{ID: "1", Role: RoleAssistant, Content: "hi"},
		{ID: TypingMessageID, Role: RoleAssistant, Typing: true},
		{ID: "2", Role: RoleUser, Content: "yo"},
	}
	got := WithoutTyping(msgs)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Fatalf("unexpected filtered messages: %+v", got)
	}
}

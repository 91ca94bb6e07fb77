package flow

import (
	"testing"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

func TestCategoryChoices(t *testing.T) {
	choices := CategoryChoices()
	if len(choices) != len(models.Categories) {
		t.Fatalf("expected %d choices, got %d", len(models.Categories), len(choices))
	}
	for i, c := range choices {
		if c.Token != string(models.Categories[i]) {
			t.Errorf("choice %d token mismatch: %q", i, c.Token)
		}
		if _, ok := models.ParseEventCategory(c.Token); !ok {
			t.Errorf("choice token %q does not parse back to a category", c.Token)
		}
	}
	if err := models.ValidateChoices(choices); err != nil {
		t.Errorf("category choices invalid: %v", err)
	}
}

func TestFollowUpChoicesPerCategory(t *testing.T) {
	for _, category := range models.Categories {
		choices := FollowUpChoices(category)
		if len(choices) != 5 {
			t.Errorf("%s: expected 4 topics plus exit, got %d", category, len(choices))
		}
		last := choices[len(choices)-1]
		if last.Token != ExitToken {
			t.Errorf("%s: expected exit token last, got %q", category, last.Token)
		}
		for _, c := range choices[:len(choices)-1] {
			topic, ok := ParseFollowUpToken(c.Token)
			if !ok {
				t.Errorf("%s: token %q does not parse as follow-up", category, c.Token)
			}
			if topic != c.Label {
				t.Errorf("%s: token topic %q differs from label %q", category, topic, c.Label)
			}
		}
		if err := models.ValidateChoices(choices); err != nil {
			t.Errorf("%s: follow-up choices invalid: %v", category, err)
		}
	}
}

func TestFollowUpChoicesUnknownCategory(t *testing.T) {
	choices := FollowUpChoices(models.EventCategory("picnic"))
	if len(choices) != 1 || choices[0].Token != ExitToken {
		t.Errorf("unknown category should yield exit only, got %+v", choices)
	}
}

func TestParseFollowUpToken(t *testing.T) {
	tests := []struct {
		token string
		topic string
		ok    bool
	}{
		{FollowUpTokenPrefix + "🍰 Cake and catering options?", "🍰 Cake and catering options?", true},
		{FollowUpTokenPrefix + "  ", "", false},
		{"birthday", "", false},
		{ExitToken, "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		topic, ok := ParseFollowUpToken(tt.token)
		if topic != tt.topic || ok != tt.ok {
			t.Errorf("ParseFollowUpToken(%q) = %q, %v; want %q, %v", tt.token, topic, ok, tt.topic, tt.ok)
		}
	}
}

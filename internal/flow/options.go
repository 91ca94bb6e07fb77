package flow

import (
	"strings"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// FollowUpTokenPrefix marks a selection token as a follow-up topic choice.
const FollowUpTokenPrefix = "followup:"

// ExitToken is the selection token that ends the conversation.
const ExitToken = "exit"

// followUps maps each category to its fixed follow-up topic inventory.
var followUps = map[models.EventCategory][]string{
	models.CategoryBirthday: {
		"🎁 Suggestions for return gifts?",
		"📍 Venue recommendations in your area?",
		"🍰 Cake and catering options?",
		"🎊 Decoration themes for kids?",
	},
	models.CategoryBusiness: {
		"📅 Help with scheduling or logistics?",
		"🍽️ Catering options?",
		"📢 Need guest speaker suggestions?",
		"📈 How to promote the event?",
	},
	models.CategoryWedding: {
		"💒 Themes or dress suggestions?",
		"🎶 Music and entertainment planning?",
		"📷 Photography ideas?",
		"🍽️ Food and drink packages?",
	},
}

// CategoryChoices returns the selectable event categories in display order.
func CategoryChoices() []models.Choice {
	choices := make([]models.Choice, 0, len(models.Categories))
	for _, c := range models.Categories {
		choices = append(choices, models.Choice{Label: c.Label(), Token: string(c)})
	}
	return choices
}

// FollowUpChoices returns the follow-up topics for a category plus the exit
// option. Unknown categories get only the exit option.
func FollowUpChoices(category models.EventCategory) []models.Choice {
	topics := followUps[category]
	choices := make([]models.Choice, 0, len(topics)+1)
	for _, topic := range topics {
		choices = append(choices, models.Choice{Label: topic, Token: FollowUpTokenPrefix + topic})
	}
	choices = append(choices, models.Choice{Label: "🔴 Exit", Token: ExitToken})
	return choices
}

// ParseFollowUpToken extracts the topic from a follow-up selection token.
func ParseFollowUpToken(token string) (string, bool) {
	if !strings.HasPrefix(token, FollowUpTokenPrefix) {
		return "", false
	}
	topic := strings.TrimSpace(strings.TrimPrefix(token, FollowUpTokenPrefix))
	return topic, topic != ""
}

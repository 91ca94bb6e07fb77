package flow

import (
	"fmt"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// Static reply texts. Exact wording is presentation policy; tests assert on
// these constants rather than duplicating strings.
const (
	msgGreeting = "Hi! What type of event are you planning?"

	msgHelp = "🆘 How to Use EventPilot\n\n" +
		"1. Type /start to select an event category.\n" +
		"2. Describe the event (e.g., 'Jungle theme birthday for 10-year-old in Mumbai').\n" +
		"3. Get curated suggestions in bullet points.\n" +
		"4. Tap follow-up questions to refine your plan.\n\n" +
		"Need more support? Just ask!"

	msgChooseFirst = "Please choose an option first using the buttons, or type /start to begin again."

	msgStartRequired = "👋 Type /start and I'll help you plan your event."

	msgGuidance = "🤖 I didn't catch that. Type /start to plan an event or /help for instructions."

	msgGenerationFailed = "⚠️ I couldn't reach my planning brain just now. Your ideas are safe. Pick a follow-up below or describe your event again."

	msgFarewell = "👋 Alright! I'm here if you need help again. Just type /start."

	msgDescriptionTooLong = "📝 That description is a bit long for me. Could you trim it down?"

	msgMoreHelp = "Would you like help with anything else?"
)

// descriptionPrompt asks for free text once a category is chosen.
func descriptionPrompt(category models.EventCategory) string {
	return fmt.Sprintf("🎯 Great! Now send me a short description of your %s event.", category)
}

// followUpAck acknowledges a selected follow-up topic and re-arms for detail.
func followUpAck(topic string) string {
	return fmt.Sprintf("🧠 Let's dig into: %s\nSend me any extra detail, or just say 'go ahead'.", topic)
}

// planHeader opens the bullet sequence for a category.
func planHeader(category models.EventCategory) string {
	return fmt.Sprintf("📅 Here's your %s Event Plan:", category.Title())
}

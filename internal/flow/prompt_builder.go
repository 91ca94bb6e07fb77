package flow

import (
	"fmt"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// plannerPersona is the fixed system directive for every generation call:
// warm, concise, bullet-oriented, emoji-permitting, always ending with a
// clarifying question.
const plannerPersona = "You are a creative and helpful event planner. " +
	"Give clear, friendly bullet-point suggestions (7-10), using emojis. " +
	"Include theme, food, logistics, and venue suggestions based on location. " +
	"Always end with a human-like follow-up question to refine the plan."

// BuildPlanPrompt assembles the generation request for an initial plan.
// Pure and deterministic: no state, no clock, no network.
func BuildPlanPrompt(category models.EventCategory, description string) models.PromptSpec {
	return models.PromptSpec{
		System: plannerPersona,
		User: fmt.Sprintf(
			"As an expert event planner, analyze the following user input for a %s event: '%s'. "+
				"Generate 7-10 clear, bullet-pointed suggestions using emojis. Include themes, catering, "+
				"entertainment, logistics, and personalized venue recommendations inferred from any mentioned "+
				"location or preferences. End with a follow-up question to get more clarity (budget, guests, etc).",
			category, description),
	}
}

// BuildFollowUpPrompt assembles the generation request for a follow-up turn,
// carrying the selected topic and the prior description as running context.
func BuildFollowUpPrompt(category models.EventCategory, topic, description, priorDescription string) models.PromptSpec {
	user := fmt.Sprintf(
		"You are helping plan a %s event. The user previously described it as: '%s'. "+
			"They now want help with: '%s'. Additional detail from the user: '%s'. "+
			"Respond with 7-10 bullet points, using emojis, with suggestions grounded in the event context. "+
			"If relevant, recommend venues based on any location inferred from the original input. "+
			"End with a human-like follow-up question.",
		category, priorDescription, topic, description)
	return models.PromptSpec{System: plannerPersona, User: user}
}

package generator_service

import (
	"fmt"
	"strings"

	model "sandbox-app-service/models"
)

const componentRules = `Use Tailwind CSS for styling and export the component as default.
Import every dependency the component needs. Be careful: the output is compiled as-is.`

const componentFormat = `RESPONSE FORMAT:
import React from 'react';
export default function LLMComponent() {
    return (
        <div className="bg-red-500">
            <h1>LLM Component</h1>
        </div>
    )
}

Respond with the React component only, no other text. The component MUST be named "LLMComponent". Do not wrap the code in a code block.`

// InitialArtifactPrompt prompt for the first artifact of an app
func InitialArtifactPrompt(instruction string) string {
	return fmt.Sprintf(`Generate a React component that is a good example of the prompt below.
%s

Prompt: %s

%s`, componentRules, instruction, componentFormat)
}

// FollowupArtifactPrompt prompt for an edit of an existing artifact
func FollowupArtifactPrompt(instruction, priorArtifact string, history []*model.Message) string {
	return fmt.Sprintf(`%s

The existing React component you are working with is:
%s

Apply the following change to the React component:
%s

Conversation so far between the user and the assistant:
%s

Generate a React component that is a good example of the prompt.
Prompt: %s

%s`, componentRules, priorArtifact, instruction, FormatHistory(history), instruction, componentFormat)
}

// InitialExplainPrompt prompt summarizing the first artifact
func InitialExplainPrompt(instruction, artifact string) string {
	return fmt.Sprintf(`You were given this prompt and generated the React component below.

Prompt: %s

Generated React component: %s

Summarize what you built in one reply, for example:
- "That sounds great! I made a donut chart for you. Let me know if you want anything else!"

Be as concise as possible, and friendly.`, instruction, artifact)
}

// FollowupExplainPrompt prompt summarizing an edit
func FollowupExplainPrompt(instruction, before, after string) string {
	return fmt.Sprintf(`You edited a React component in response to this prompt.

Prompt: %s

Original React component: %s
Generated React component: %s

Summarize the changes in one reply, for example:
- "Sounds good! I've made the changes you requested. Yay :D"
- "I colored the background red and added a new button. Let me know if you want anything else!"

Be as concise as possible, and friendly.`, instruction, before, after)
}

// FormatHistory renders history as "type: content" lines in order
func FormatHistory(history []*model.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Type, m.Content))
	}
	return strings.Join(lines, "\n")
}

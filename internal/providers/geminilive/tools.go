package geminilive

import (
	"google.golang.org/genai"

	"pitchdojo/internal/domain"
)

// ToolDeclarations describes the coaching tools the agent must call at
// the end of every turn. Shared with the relay, which builds the same
// upstream session on behalf of browser clients.
func ToolDeclarations() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        string(domain.ToolInterestLevel),
				Description: "Sets the prospect's current interest level in the user's pitch.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"level": {
							Type:        genai.TypeNumber,
							Description: "Interest level from 0 to 100.",
						},
					},
					Required: []string{"level"},
				},
			},
			{
				Name:        string(domain.ToolSentiment),
				Description: "Rates the prospect's emotional reaction to the user's last input.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"sentiment": {
							Type:        genai.TypeString,
							Description: "One of red, orange, green.",
							Enum:        []string{"red", "orange", "green"},
						},
					},
					Required: []string{"sentiment"},
				},
			},
			{
				Name:        string(domain.ToolStageAdvance),
				Description: "Advances the call to the named sales stage once its goals are met.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"stage": {
							Type:        genai.TypeString,
							Description: "One of opening, discovery, solution, closing.",
							Enum:        []string{"opening", "discovery", "solution", "closing"},
						},
					},
					Required: []string{"stage"},
				},
			},
			{
				Name:        string(domain.ToolChecklistMark),
				Description: "Marks a checklist behavior the user just demonstrated.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"item_text": {
							Type:        genai.TypeString,
							Description: "The text of the completed checklist item.",
						},
					},
					Required: []string{"item_text"},
				},
			},
		},
	}}
}

func toolDeclarations() []*genai.Tool {
	return ToolDeclarations()
}

package services

import (
	"fmt"
	"strings"
)

const adviceOutputContract = `[Instructions]
- Analyze the child's behavioral tendencies and write concrete advice parents can try at home.
- Write exactly 2 entries, each a short title plus a description.
- Titles must be single sentences under 30 characters.
- Descriptions must be 2 sentences or fewer.
- Include positive feedback as well, and return ONLY a valid JSON object with this exact structure. No preamble, no markdown, no backticks:

{
  "analysis": [
    {"title": "string", "description": "string"},
    {"title": "string", "description": "string"}
  ]
}
`

func buildKidsTrafficAdvicePrompt(stats map[string]any) string {
	var b strings.Builder

	b.WriteString("You are an AI cognitive psychologist generating short behavioral insights for parents.\n")
	b.WriteString("Base your analysis on the following Go/No-Go game data.\n\n")

	b.WriteString("Game: Kids Traffic (reaction inhibition)\n")
	b.WriteString(`Notes:
- The game is a Go/No-Go task: stop on the red light, move on the green light.
- A game runs up to 10 rounds, each round presents up to 5 signal changes.
- Three wrong reactions in a round fail that round and end the game.
- The wrong rate indicates impulsivity; average reaction time indicates decision speed.
- The count of plays that reached the final round indicates sustained concentration.
- Recent plays reflect how the child's current cognitive state is changing.

`)

	b.WriteString("Game results:\n")
	b.WriteString(fmt.Sprintf("- Total plays: %v\n", stats["total_plays_count"]))
	b.WriteString(fmt.Sprintf("- Total rounds played: %v\n", stats["total_play_rounds_count"]))
	b.WriteString(fmt.Sprintf("- Plays that reached the final round: %v\n", stats["max_rounds_count"]))
	b.WriteString(fmt.Sprintf("- Average reaction time: %vms\n", stats["total_reaction_ms_avg"]))
	b.WriteString(fmt.Sprintf("- Total actions: %v\n", stats["total_play_actions_count"]))
	b.WriteString(fmt.Sprintf("- Total correct reactions: %v\n", stats["total_success_count"]))
	b.WriteString(fmt.Sprintf("- Total wrong reactions: %v\n", stats["total_wrong_count"]))
	b.WriteString(fmt.Sprintf("- Wrong rate: %v%%\n\n", stats["wrong_rate"]))

	writeRecentTrends(&b, stats)

	b.WriteString("Use the recent play trend to identify how the child is developing and what to improve.\n\n")
	b.WriteString(adviceOutputContract)

	return b.String()
}

func buildBBStarAdvicePrompt(stats map[string]any) string {
	var b strings.Builder

	b.WriteString("You are an AI cognitive psychologist generating concise parent-facing behavioral advice.\n")
	b.WriteString("Base your analysis on the following sequence memory game data.\n\n")

	b.WriteString("Game: BB Star (sequence memory)\n")
	b.WriteString(`Notes:
- The game is a sequence memory task: stars blink in order and the child must repeat the sequence.
- A game runs up to 10 rounds; sequences grow to up to 9 stars per round.
- It evaluates working memory and sustained attention.
- A high wrong rate can indicate distraction or difficulty holding the sequence in memory.
- The count of plays that reached the final round indicates sustained concentration.
- Recent plays reflect how the child's current cognitive state is changing.

`)

	b.WriteString("Game results:\n")
	b.WriteString(fmt.Sprintf("- Total plays: %v\n", stats["total_plays_count"]))
	b.WriteString(fmt.Sprintf("- Total rounds played: %v\n", stats["total_play_rounds_count"]))
	b.WriteString(fmt.Sprintf("- Plays that reached the final round: %v\n", stats["max_rounds_count"]))
	b.WriteString(fmt.Sprintf("- Total actions: %v\n", stats["total_play_actions_count"]))
	b.WriteString(fmt.Sprintf("- Total correct inputs: %v\n", stats["total_success_count"]))
	b.WriteString(fmt.Sprintf("- Total wrong inputs: %v\n", stats["total_wrong_count"]))
	b.WriteString(fmt.Sprintf("- Wrong rate: %v%%\n\n", stats["wrong_rate"]))

	writeRecentTrends(&b, stats)

	b.WriteString("Use the recent play trend to identify the child's concentration pattern and what to improve.\n\n")
	b.WriteString(adviceOutputContract)

	return b.String()
}

func writeRecentTrends(b *strings.Builder, stats map[string]any) {
	trends, _ := stats["recent_trends"].([]map[string]any)

	b.WriteString("Recent play trend (most recent first):\n")
	if len(trends) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, t := range trends {
		b.WriteString(fmt.Sprintf("- play %v: reached round %v, %v correct, %v wrong (success rate %v%%)\n",
			t["order"], t["round_count"], t["success_count"], t["wrong_count"], t["success_rate"]))
	}
	b.WriteString("\n")
}

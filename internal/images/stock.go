package images

import "strings"

var categoryKeywords = map[string][]string{
	"space":   {"space", "planet", "star", "galaxy", "moon", "mars", "comet", "asteroid", "black hole", "rocket", "astronaut"},
	"nature":  {"animal", "ocean", "forest", "volcano", "dinosaur", "insect", "plant", "weather", "river", "mountain", "bird"},
	"history": {"history", "ancient", "pyramid", "castle", "rome", "egypt", "viking", "empire", "war", "king", "queen"},
}

// CategoryFor buckets a topic into a stock-asset category by keyword,
// defaulting to generic.
func CategoryFor(topic string) string {
	lowered := strings.ToLower(topic)
	for _, category := range []string{"space", "nature", "history"} {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lowered, kw) {
				return category
			}
		}
	}
	return "generic"
}

// Package intent maps free-text customer messages to the name of the
// specialist agent that should handle them. Classification is deterministic,
// pure and never fails: unrecognised input falls back to the product agent.
package intent

import (
	"regexp"
	"strings"
)

// Agent names returned by Classify.
const (
	ProductLookupAgent = "ProductLookupAgent"
	OrderStatusAgent   = "OrderStatusAgent"
	KnowledgeAgent     = "KnowledgeAgent"
)

// AgentNames lists every agent the classifier can route to.
var AgentNames = []string{ProductLookupAgent, OrderStatusAgent, KnowledgeAgent}

var productPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(paint|color|blue|red|green|white|black|shade|tone|finish)\b`),
	regexp.MustCompile(`\b(product|item|buy|purchase|price|cost)\b`),
	regexp.MustCompile(`\b(what.*offer|show.*product|find.*paint)\b`),
	regexp.MustCompile(`\b(match.*color|color.*match|sample)\b`),
	regexp.MustCompile(`\b(recommend|suggest|help.*choose)\b`),
	regexp.MustCompile(`\b(interior|exterior|primer|coating)\b`),
}

var policyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(return|refund|exchange|policy|warranty)\b`),
	regexp.MustCompile(`\b(problem|issue|complaint|damaged|leaking)\b`),
	regexp.MustCompile(`\b(ship|delivery|shipping|track)\b`),
	regexp.MustCompile(`\b(help|support|contact|customer service)\b`),
	regexp.MustCompile(`\b(guarantee|coverage|defect)\b`),
	regexp.MustCompile(`\b(cancel|order.*status|tracking)\b`),
}

// Override phrases short-circuit scoring entirely. Product overrides are
// checked before policy overrides; first match wins.
var (
	productOverrides = []string{"what products", "what do you offer", "show me products"}
	policyOverrides  = []string{"return policy", "warranty", "refund", "damaged"}
)

// Classify returns the name of the agent that should handle text. It always
// returns one of the known agent names; text with no signal at all routes to
// ProductLookupAgent.
func Classify(text string) string {
	query := strings.ToLower(text)

	for _, phrase := range productOverrides {
		if strings.Contains(query, phrase) {
			return ProductLookupAgent
		}
	}
	for _, phrase := range policyOverrides {
		if strings.Contains(query, phrase) {
			return KnowledgeAgent
		}
	}

	productScore := score(productPatterns, query)
	policyScore := score(policyPatterns, query)

	switch {
	case productScore > policyScore:
		return ProductLookupAgent
	case policyScore > 0:
		return KnowledgeAgent
	default:
		return ProductLookupAgent
	}
}

func score(patterns []*regexp.Regexp, query string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(query) {
			n++
		}
	}
	return n
}

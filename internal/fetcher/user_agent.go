package fetcher

import (
	"math/rand"
	"strings"
	"time"
)

type AgentFamily string

const (
	AgentAuto    AgentFamily = "auto"
	AgentChrome  AgentFamily = "chrome"
	AgentFirefox AgentFamily = "firefox"
	AgentSafari  AgentFamily = "safari"
	AgentEdge    AgentFamily = "edge"
)

// DefaultUserAgent is used when neither a literal user agent nor a browser
// family is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

var agentPool = map[AgentFamily][]string{
	AgentChrome: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	},
	AgentFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.4; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:124.0) Gecko/20100101 Firefox/124.0",
	},
	AgentSafari: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	},
	AgentEdge: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
	},
}

// AgentSelector picks user agent strings per browser family.
type AgentSelector struct {
	rng *rand.Rand
}

func NewAgentSelector() *AgentSelector {
	return &AgentSelector{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// UserAgent returns an agent string for the given family. Unknown or empty
// families fall back to the default modern browser string.
func (s *AgentSelector) UserAgent(family string) string {
	family = strings.ToLower(strings.TrimSpace(family))

	switch AgentFamily(family) {
	case AgentAuto:
		all := make([]string, 0, 8)
		for _, agents := range agentPool {
			all = append(all, agents...)
		}
		return all[s.rng.Intn(len(all))]
	case AgentChrome, AgentFirefox, AgentSafari, AgentEdge:
		agents := agentPool[AgentFamily(family)]
		return agents[s.rng.Intn(len(agents))]
	default:
		return DefaultUserAgent
	}
}

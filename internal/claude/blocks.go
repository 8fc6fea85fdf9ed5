package claude

import (
	"encoding/json"
	"fmt"
	"os/exec"
)

// Block is a single 5-hour billing block as reported by ccusage.
type Block struct {
	ID          string `json:"id"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsActive    bool   `json:"isActive"`
	IsGap       bool   `json:"isGap"`
	TokenCounts struct {
		InputTokens              int64 `json:"inputTokens"`
		OutputTokens             int64 `json:"outputTokens"`
		CacheCreationInputTokens int64 `json:"cacheCreationInputTokens"`
		CacheReadInputTokens     int64 `json:"cacheReadInputTokens"`
	} `json:"tokenCounts"`
	TotalTokens int64 `json:"totalTokens"`
}

type blocksOutput struct {
	Blocks []Block `json:"blocks"`
}

// ParseBlocks decodes the JSON emitted by ccusage blocks --json.
func ParseBlocks(data []byte) ([]Block, error) {
	var out blocksOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ccusage blocks JSON: %w", err)
	}
	return out.Blocks, nil
}

// ActiveBlockTokens returns the total token count of the active non-gap
// block, or false when no block is active.
func ActiveBlockTokens(blocks []Block) (int64, bool) {
	for _, b := range blocks {
		if b.IsActive && !b.IsGap {
			return b.TotalTokens, true
		}
	}
	return 0, false
}

// FetchBlocks runs ccusage via npx and parses its block listing. ccusage
// reads local Claude Code session logs, so this works without network access
// once the package is cached.
func FetchBlocks() ([]Block, error) {
	out, err := exec.Command("npx", "--yes", "ccusage@latest", "blocks", "--json").Output()
	if err != nil {
		return nil, fmt.Errorf("ccusage blocks: %w", err)
	}
	return ParseBlocks(out)
}

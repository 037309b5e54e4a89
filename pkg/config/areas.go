package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// AreaKeywords maps a product-area tag to the keywords that imply it.
type AreaKeywords map[string][]string

// DefaultAreaKeywords is used when no AREA_KEYWORDS_FILE is configured.
func DefaultAreaKeywords() AreaKeywords {
	return AreaKeywords{
		"pricing":      {"price", "pricing", "cost", "expensive", "discount", "budget"},
		"billing":      {"invoice", "billing", "payment", "refund", "subscription"},
		"onboarding":   {"onboarding", "setup", "getting started", "tutorial", "first time"},
		"performance":  {"slow", "latency", "performance", "timeout", "lag", "crash"},
		"integrations": {"integration", "api", "slack", "salesforce", "hubspot", "zapier", "webhook"},
		"reporting":    {"report", "dashboard", "analytics", "export", "chart"},
		"security":     {"security", "permission", "sso", "sign on", "compliance", "gdpr"},
		"ux":           {"confusing", "navigation", "design", "usability", "button", "layout"},
		"mobile":       {"mobile", "ios", "android", "tablet"},
		"support":      {"support", "ticket", "response time", "help desk"},
	}
}

// Areas returns the tags in a stable order.
func (a AreaKeywords) Areas() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type areaFile struct {
	Areas map[string][]string `toml:"areas"`
}

// LoadAreaKeywords reads an area taxonomy from a TOML file of the form
//
//	[areas]
//	pricing = ["price", "cost"]
//
// An empty path returns the defaults.
func LoadAreaKeywords(path string) (AreaKeywords, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultAreaKeywords(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read area keywords: %w", err)
	}
	return ParseAreaKeywords(data)
}

// ParseAreaKeywords decodes TOML area definitions, dropping blank entries.
func ParseAreaKeywords(data []byte) (AreaKeywords, error) {
	var file areaFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse area keywords: %w", err)
	}
	out := make(AreaKeywords, len(file.Areas))
	for area, keywords := range file.Areas {
		area = strings.ToLower(strings.TrimSpace(area))
		if area == "" {
			continue
		}
		for _, kw := range keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				out[area] = append(out[area], kw)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("parse area keywords: no areas defined")
	}
	return out, nil
}

package services

import (
	"fmt"
	"os"

	"feedreader/internal/core"
	"feedreader/internal/features/reader/models"

	"github.com/BurntSushi/toml"
)

// ParseSubscriptions decodes a TOML subscription list:
//
//	[[feed]]
//	url = "https://example.com/feed.xml"
//	tags = ["tech"]
func ParseSubscriptions(data []byte) (*models.SubscriptionList, error) {
	var list models.SubscriptionList
	if err := toml.Unmarshal(data, &list); err != nil {
		return nil, core.NewValidationError("invalid subscription list", err)
	}
	return &list, nil
}

// LoadSubscriptions reads and decodes a subscription list file
func LoadSubscriptions(path string) (*models.SubscriptionList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription list: %w", err)
	}
	return ParseSubscriptions(data)
}

package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// optionalBool parses a tri-state query filter. An empty value means unset.
func optionalBool(field, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, newValidationError(field, "invalid_"+field, field+" must be true or false")
	}
	return &value, nil
}

// optionalID parses a snowflake id filter. An empty value means unset.
func optionalID(field, raw string) (*snowflake.ID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := bodyID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

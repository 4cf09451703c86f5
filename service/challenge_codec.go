package service

import (
	"encoding/json"
	"fmt"

	"github.com/zapgate/zapgate/core"
)

func marshalChallenge(c *core.Challenge) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode challenge: %w", err)
	}
	return string(payload), nil
}

func unmarshalChallenge(payload string) (*core.Challenge, error) {
	var c core.Challenge
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, fmt.Errorf("failed to decode challenge record: %w", err)
	}
	return &c, nil
}

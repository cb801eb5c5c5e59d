package envelope

import (
	"errors"
	"strings"
)

// Config names the three key paths of an envelope and the code that means success.
// DataKey is ignored by the void mapping.
type Config struct {
	DataKey     string `json:"data_key" yaml:"data_key"`
	CodeKey     string `json:"code_key" yaml:"code_key"`
	MessageKey  string `json:"message_key" yaml:"message_key"`
	SuccessCode int    `json:"success_code" yaml:"success_code"`
}

// Validate checks that the code key is set.
func (c Config) Validate() error {
	if strings.TrimSpace(c.CodeKey) == "" {
		return errors.New("code_key is required")
	}
	return nil
}

func (c Config) sanitized() Config {
	c.DataKey = strings.TrimSpace(c.DataKey)
	c.CodeKey = strings.TrimSpace(c.CodeKey)
	c.MessageKey = strings.TrimSpace(c.MessageKey)
	return c
}

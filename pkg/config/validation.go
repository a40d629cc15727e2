package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom
// rules. go-playground/validator covers the declarative checks; the
// cross-field shard-table rules that cannot be expressed in tags follow.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("nodes: at least one shard node must be configured")
	}

	if err := validateNodeName(cfg.Gateway.Name); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	names := map[string]bool{cfg.Gateway.Name: true}
	exts := map[string]bool{cfg.Gateway.Extension: true}

	for i, node := range cfg.Nodes {
		if err := validateNodeName(node.Name); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, err)
		}
		if names[node.Name] {
			return fmt.Errorf("nodes[%d]: duplicate node name %q", i, node.Name)
		}
		if exts[node.Extension] {
			return fmt.Errorf("nodes[%d]: duplicate extension %q", i, node.Extension)
		}
		names[node.Name] = true
		exts[node.Extension] = true
	}

	return nil
}

// validateNodeName rejects names that would produce an ambiguous wire
// marker. The marker is "~" + name and is split on the first slash.
func validateNodeName(name string) error {
	if strings.ContainsAny(name, "~/ \t\n") {
		return fmt.Errorf("node name %q must not contain '~', '/' or whitespace", name)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}

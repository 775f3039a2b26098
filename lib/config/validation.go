// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	platformerrors "github.com/jmgilman/go/errors"
)

// validate is the singleton validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tag constraints and the rules tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if err := c.validateCustomRules(); err != nil {
		return platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "invalid configuration")
	}
	return nil
}

func (c *Config) validateCustomRules() error {
	if c.CacheTimeout <= 0 {
		return fmt.Errorf("cache_timeout: must be positive, got %s", c.CacheTimeout.String())
	}
	for i, option := range c.MountOptions {
		// gitfs's own options and the fixed policy never reach FUSE.
		name, _, _ := strings.Cut(option, "=")
		switch name {
		case "rw", "ro", "rev", "sandbox", "debug", "no-oid-files":
			return fmt.Errorf("mount_options[%d]: %q is not a FUSE mount option", i, option)
		}
	}
	return nil
}

// formatValidationError converts validator errors into one readable
// message naming the first failing field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return platformerrors.Newf(platformerrors.CodeInvalidConfig,
			"%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "invalid configuration")
}

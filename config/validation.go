package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the struct tag constraints and the cross-field rules of cfg.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	names := make(map[string]int, len(cfg.FileTransfer.Files))
	for i, f := range cfg.FileTransfer.Files {
		key := fmt.Sprintf("%d:%s", f.Namespace, f.Name)
		if prev, ok := names[key]; ok {
			return fmt.Errorf("filetransfer.files[%d]: duplicate file name %q (first defined at index %d)", i, f.Name, prev)
		}
		names[key] = i
	}

	if cfg.KeepAlive.Interval > 0 && cfg.KeepAlive.Interval > cfg.KeepAlive.TransportTimeout {
		return fmt.Errorf("keepalive: interval %v exceeds transport_timeout %v",
			cfg.KeepAlive.Interval, cfg.KeepAlive.TransportTimeout)
	}

	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}

	return err
}

package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	beamerrors "github.com/beamforge/beamforge/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Validate runs struct-tag validation over cfg, plus the cross-field
// check that a checkpoint directory must accompany an enabled
// checkpoint policy with at least one trigger configured.
func Validate(cfg *Config) error {
	if cfg == nil {
		return beamerrors.NewValidationError("config", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	if cfg.Checkpoint.Enabled {
		cp := cfg.Checkpoint
		if !cp.AfterEveryBarrier && cp.EveryNNodes <= 0 && cp.IntervalSeconds <= 0 {
			return beamerrors.NewValidationError("checkpoint", "enabled checkpointing needs at least one of after_every_barrier, every_n_nodes, interval_seconds", nil)
		}
	}

	return nil
}

func convertValidationError(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return beamerrors.NewValidationError("config", err.Error(), err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}
	return beamerrors.NewValidationError(fieldErrs[0].Namespace(), strings.Join(msgs, "; "), err)
}

package ctxlog

import (
	"sync"

	"github.com/Station-Manager/errors"
	"github.com/czechbol/ctxlog/rotate"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate
var once sync.Once

func validateConfig(cfg *Config) error {
	const op errors.Op = "ctxlog.validateConfig"
	if cfg == nil {
		return errors.New(op).Msg(errMsgNilConfig)
	}

	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// registration only fails for empty tags or nil funcs
		_ = rotate.RegisterValidators(validate)
	})

	if err := validate.Struct(cfg); err != nil {
		return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
	}

	// engine restrictions that struct tags cannot express
	for _, fc := range cfg.Files {
		if fc.Rotation == nil {
			continue
		}
		if err := fc.Rotation.Validate(); err != nil {
			return errors.New(op).Err(err).Msg(errMsgConfigInvalid)
		}
	}
	return nil
}

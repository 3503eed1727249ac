package commands

import (
	"fmt"
	"time"

	"crossposter/internal/adapters/telegram"
	"crossposter/internal/platform/config"
	perr "crossposter/internal/platform/errors"
	"crossposter/internal/platform/net/http/bind"
	cpmod "crossposter/internal/services/crosspost/module"
)

// settings is every process level knob read at startup
type settings struct {
	Crosspost cpmod.Options
	Telegram  telegram.Config
	Swagger   bool
	Profiler  bool
	// CORSOrigins enables CORS for dashboards when set
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// loadSettings reads and validates config; config panics on malformed values become errors
func loadSettings(root config.Conf) (s settings, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = perr.InvalidArgf("config: %v", r)
		}
	}()
	core := root.Prefix("CORE_")
	s = settings{
		Crosspost: cpmod.FromConfig(root),
		Telegram:  telegram.FromConfig(root),
		Swagger:   core.MayBool("API_SWAGGER", false),
		Profiler:  core.MayBool("API_PROFILER", false),

		CORSOrigins:    core.MayCSV("API_CORS_ORIGINS", nil),
		RequestTimeout: core.MayDuration("API_REQUEST_TIMEOUT", time.Minute),
	}
	if err := bind.Validate(s.Crosspost); err != nil {
		return s, perr.WithOp(err, "crosspost")
	}
	if err := s.Telegram.Validate(); err != nil {
		return s, perr.WithOp(err, "telegram")
	}
	if len(s.Crosspost.Publishers) == 0 {
		return s, fmt.Errorf("no publishers enabled; set CROSSPOST_PUBLISHERS")
	}
	return s, nil
}

package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chamber-ai/william/src/arrakis"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateAPIConfig, APIConfig{})
	return v
}

// validateAPIConfig checks the provider/model pair against the closed
// sets. An empty pair is allowed; commands that need one resolve it and
// fail with a clearer message.
func validateAPIConfig(sl validator.StructLevel) {
	api := sl.Current().Interface().(APIConfig)
	if api.Provider == "" && api.Model == "" {
		return
	}
	if _, err := arrakis.NewAPI(api.Provider, api.Model); err != nil {
		sl.ReportError(api.Model, "Model", "model", "api_model", "")
	}
}

func validateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

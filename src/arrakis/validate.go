package arrakis

import "github.com/go-playground/validator/v10"

// validate is shared by request and response parsing. Custom checks cover
// the closed enumerations the generic tags cannot express.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("message_type", validateMessageType); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(validateAPIStruct, API{})

	return v
}

func validateMessageType(fl validator.FieldLevel) bool {
	return MessageType(fl.Field().String()).Valid()
}

// validateAPIStruct rejects unknown providers and cross-provider
// provider/model combinations.
func validateAPIStruct(sl validator.StructLevel) {
	api := sl.Current().Interface().(API)
	if err := api.Validate(); err != nil {
		sl.ReportError(api.Model, "model", "Model", "api_model", "")
	}
}

// checkStruct runs validator tags over a decoded payload and converts the
// failure, if any, into a SchemaError.
func checkStruct(v any) *SchemaError {
	if err := validate.Struct(v); err != nil {
		return asSchemaError(err)
	}
	return nil
}

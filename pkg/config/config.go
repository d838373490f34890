// Package config holds the business configuration a flow template is built from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/switchboard/pkg/domain"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their configuration key, not the Go name.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// PricingPlan is one tier quoted by the sales templates.
type PricingPlan struct {
	Name    string `yaml:"name" json:"name" mapstructure:"name" validate:"required"`
	Price   int    `yaml:"price" json:"price" mapstructure:"price" validate:"min=0"`
	Minutes string `yaml:"minutes" json:"minutes" mapstructure:"minutes"`
	Numbers int    `yaml:"numbers" json:"numbers" mapstructure:"numbers" validate:"min=0"`
	Summary string `yaml:"summary,omitempty" json:"summary,omitempty" mapstructure:"summary"`
}

// BusinessConfig describes one client deployment.
// Which fields are required depends on the template.
type BusinessConfig struct {
	CompanyName           string   `yaml:"company_name" json:"company_name" mapstructure:"company_name" validate:"max=120"`
	BusinessType          string   `yaml:"business_type" json:"business_type" mapstructure:"business_type" validate:"omitempty,oneof=landscaping hvac other"`
	PhoneNumber           string   `yaml:"phone_number" json:"phone_number" mapstructure:"phone_number"`
	BusinessHours         string   `yaml:"business_hours" json:"business_hours" mapstructure:"business_hours"`
	Services              []string `yaml:"services" json:"services" mapstructure:"services" validate:"max=50,dive,max=200"`
	ServiceAreas          []string `yaml:"service_areas" json:"service_areas" mapstructure:"service_areas" validate:"max=50,dive,max=200"`
	OwnerName             string   `yaml:"owner_name" json:"owner_name" mapstructure:"owner_name"`
	TransferNumber        string   `yaml:"transfer_number" json:"transfer_number" mapstructure:"transfer_number"`
	EmergencyAvailability string   `yaml:"emergency_availability" json:"emergency_availability" mapstructure:"emergency_availability"`
	VoiceID               string   `yaml:"voice_id" json:"voice_id" mapstructure:"voice_id"`
	Model                 string   `yaml:"model" json:"model" mapstructure:"model"`
	WebhookURL            string   `yaml:"webhook_url" json:"webhook_url" mapstructure:"webhook_url" validate:"omitempty,url"`

	// Sales templates.
	AgentName        string        `yaml:"agent_name" json:"agent_name" mapstructure:"agent_name"`
	PriceDescription string        `yaml:"price_description" json:"price_description" mapstructure:"price_description"`
	BookingURL       string        `yaml:"booking_url" json:"booking_url" mapstructure:"booking_url"`
	Website          string        `yaml:"website" json:"website" mapstructure:"website"`
	Timezone         string        `yaml:"timezone" json:"timezone" mapstructure:"timezone"`
	Pricing          []PricingPlan `yaml:"pricing" json:"pricing" mapstructure:"pricing" validate:"dive"`
}

// Load reads a configuration from a YAML or JSON file.
func Load(path string) (BusinessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BusinessConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return cfg, fmt.Errorf("config %s (%s): %w", path, filepath.Ext(path), err)
	}
	return cfg, nil
}

// Parse decodes a YAML or JSON configuration document.
func Parse(data []byte) (BusinessConfig, error) {
	var cfg BusinessConfig
	// JSON is a subset of YAML, so one decoder serves both.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks field formats. Presence of template-specific fields is
// checked by RequireFields.
func Validate(cfg BusinessConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to an InvalidConfigurationError
// naming the first offending field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "BusinessConfig.")
		param := e.Param()

		var reason string
		switch e.Tag() {
		case "required":
			reason = "field is required"
		case "min":
			reason = fmt.Sprintf("must be at least %s", param)
		case "max":
			reason = fmt.Sprintf("must not exceed %s", param)
		case "oneof":
			reason = fmt.Sprintf("must be one of: %s", param)
		case "url":
			reason = "must be a valid URL"
		default:
			reason = fmt.Sprintf("validation failed (%s)", e.Tag())
		}
		return &domain.InvalidConfigurationError{Field: field, Reason: reason}
	}
	return err
}

// ToMap flattens cfg into its configuration keys.
func ToMap(cfg BusinessConfig) (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(cfg, &out); err != nil {
		return nil, fmt.Errorf("failed to flatten config: %w", err)
	}
	return out, nil
}

// IsSet reports whether the field under key holds a non-zero value.
func IsSet(cfg BusinessConfig, key string) (bool, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return false, err
	}
	v, ok := m[key]
	if !ok {
		return false, &domain.InvalidConfigurationError{Field: key, Reason: "unknown field"}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0, nil
	default:
		return !rv.IsZero(), nil
	}
}

// RequireFields fails with an InvalidConfigurationError for the first key that is unset.
func RequireFields(cfg BusinessConfig, keys ...string) error {
	for _, k := range keys {
		set, err := IsSet(cfg, k)
		if err != nil {
			return err
		}
		if !set {
			return &domain.InvalidConfigurationError{Field: k, Reason: "field is required"}
		}
	}
	return nil
}

// WithDefaults fills every unset field of cfg from defaults, a map keyed by
// configuration key (as found in template descriptors).
func WithDefaults(cfg BusinessConfig, defaults map[string]any) (BusinessConfig, error) {
	if len(defaults) == 0 {
		return cfg, nil
	}
	var base BusinessConfig
	if err := decode(defaults, &base); err != nil {
		return cfg, fmt.Errorf("invalid defaults: %w", err)
	}

	dst := reflect.ValueOf(&cfg).Elem()
	src := reflect.ValueOf(base)
	for i := 0; i < dst.NumField(); i++ {
		f := dst.Field(i)
		if isEmpty(f) && !isEmpty(src.Field(i)) {
			f.Set(src.Field(i))
		}
	}
	return cfg, nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}

// Override applies key=value pairs, as given on the command line. List fields
// take comma-separated values.
func Override(cfg BusinessConfig, pairs map[string]string) (BusinessConfig, error) {
	if len(pairs) == 0 {
		return cfg, nil
	}
	known, err := ToMap(cfg)
	if err != nil {
		return cfg, err
	}
	in := make(map[string]any, len(pairs))
	for k, v := range pairs {
		if _, ok := known[k]; !ok {
			return cfg, &domain.InvalidConfigurationError{Field: k, Reason: "unknown field"}
		}
		in[k] = v
	}
	if err := decode(in, &cfg); err != nil {
		return cfg, &domain.InvalidConfigurationError{Field: "set", Reason: err.Error()}
	}
	return cfg, nil
}

func decode(in map[string]any, out *BusinessConfig) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application settings, populated from environment variables.
type Config struct {
	// Source table and column selection.
	SourceTable        string   `envconfig:"SOURCE_TABLE"`
	TimeColumns        []string `envconfig:"TIME_COLUMNS" default:"时间,Time" validate:"min=1,dive,required"`
	TemperatureColumns []string `envconfig:"TEMPERATURE_COLUMNS" default:"温度,Temperature" validate:"min=1,dive,required"`
	TimeLayouts        []string `envconfig:"TIME_LAYOUTS" default:"20060102 15:04:05,2006年01月02日 15:04,2006-01-02 15:04:05" validate:"min=1,dive,required"`
	Timezone           string   `envconfig:"TIMEZONE" default:"Local"`
	HeaderScanRows     int      `envconfig:"HEADER_SCAN_ROWS" default:"10" validate:"min=1,max=1000"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:"127.0.0.1:8080" validate:"required"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=json text tint"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	// Chart rendering.
	TickInterval time.Duration `envconfig:"CHART_TICK_INTERVAL" default:"30m" validate:"gt=0"`
	YRange       string        `envconfig:"CHART_Y_RANGE"`
	ChartWidth   int           `envconfig:"CHART_WIDTH" default:"1200" validate:"min=320,max=8000"`
	ChartHeight  int           `envconfig:"CHART_HEIGHT" default:"600" validate:"min=200,max=8000"`

	// Reload the source when it changes on disk.
	Watch         bool          `envconfig:"WATCH" default:"false"`
	WatchDebounce time.Duration `envconfig:"WATCH_DEBOUNCE" default:"500ms" validate:"gte=0"`

	Location *time.Location `ignored:"true"`
	YMin     *float64       `ignored:"true"`
	YMax     *float64       `ignored:"true"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and resolves derived settings. It is
// re-run after command-line overrides.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describe(err)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	c.YMin, c.YMax = nil, nil
	if strings.TrimSpace(c.YRange) != "" {
		lo, hi, err := parseRange(c.YRange)
		if err != nil {
			return fmt.Errorf("invalid CHART_Y_RANGE %q: %w", c.YRange, err)
		}
		c.YMin, c.YMax = &lo, &hi
	}
	return nil
}

// parseRange parses "min:max".
func parseRange(s string) (float64, float64, error) {
	loStr, hiStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, errors.New("want min:max")
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(loStr), 64)
	if err != nil {
		return 0, 0, err
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(hiStr), 64)
	if err != nil {
		return 0, 0, err
	}
	if lo >= hi {
		return 0, 0, errors.New("min must be below max")
	}
	return lo, hi, nil
}

// describe rewrites validator errors in terms of environment variable names.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("invalid %s: failed %q constraint", envName(fe.StructField()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func envName(field string) string {
	// Slice elements are reported as "Field[i]".
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	if name := f.Tag.Get("envconfig"); name != "" {
		return name
	}
	return field
}

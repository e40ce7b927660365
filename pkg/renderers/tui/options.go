package tui

import (
	"io"

	"github.com/rs/zerolog"
)

// Theme captures the prefixes used when printing messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
	CardBullet  string
}

func defaultTheme() Theme {
	return Theme{InfoPrefix: "", ErrorPrefix: "✗ ", CardBullet: "•"}
}

// Option configures the prompter and the card printer.
type Option func(*config)

type config struct {
	driver PromptDriver
	out    io.Writer
	theme  Theme
	logger zerolog.Logger
}

// WithPromptDriver overrides the survey-backed driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(c *config) {
		if driver != nil {
			c.driver = driver
		}
	}
}

// WithWriter sets where cards and notices are printed.
func WithWriter(out io.Writer) Option {
	return func(c *config) {
		if out != nil {
			c.out = out
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(c *config) {
		c.theme = theme
	}
}

// WithLogger sets the logger used for printer failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

package main

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"steelloop/internal/app"
	"steelloop/internal/config"
	"steelloop/internal/logging"
)

const userEnv = "STEELLOOP_USER"

var errNoUser = errors.New("no acting user: pass --user or set " + userEnv)

type commandContext struct {
	configFlag *string
	userFlag   *string
	jsonFlag   *bool

	configOnce sync.Once
	config     config.Config
}

func newCommandContext(configFlag, userFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		userFlag:   userFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() config.Config {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			c.config = config.Load()
			return
		}
		c.config = config.LoadFile(path)
	})
	return c.config
}

func (c *commandContext) user() (string, error) {
	if id := strings.TrimSpace(*c.userFlag); id != "" {
		return id, nil
	}
	if id := strings.TrimSpace(os.Getenv(userEnv)); id != "" {
		return id, nil
	}
	return "", errNoUser
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// withApp opens the application for the duration of fn. Logs go to stderr so
// stdout stays parseable.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(*app.Application) error) error {
	cfg := c.ensureConfig()
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format, isatty.IsTerminal(os.Stderr.Fd()))
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()
	return fn(application)
}

// withUser is withApp for commands that act on behalf of a user.
func (c *commandContext) withUser(cmd *cobra.Command, fn func(*app.Application, string) error) error {
	userID, err := c.user()
	if err != nil {
		return err
	}
	return c.withApp(cmd, func(a *app.Application) error {
		return fn(a, userID)
	})
}

// emit prints v as JSON when requested, otherwise calls render.
func (c *commandContext) emit(cmd *cobra.Command, v any, render func() string) error {
	if c.jsonOutput() {
		return writeJSON(cmd, v)
	}
	out := render()
	if out == "" {
		return nil
	}
	_, err := cmd.OutOrStdout().Write([]byte(out + "\n"))
	return err
}

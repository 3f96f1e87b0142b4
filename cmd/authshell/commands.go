package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goliatone/go-authgate"
)

type command struct {
	name string
	arg  string
}

func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, false
	}
	name, arg, _ := strings.Cut(line, " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}, true
}

// refresher is implemented by providers that can renew their token.
type refresher interface {
	Refresh(ctx context.Context) error
}

type console struct {
	shell    *authgate.Shell
	provider authgate.IdentityProvider
	loop     authgate.Dispatcher
	out      io.Writer
	logger   authgate.Logger
	quit     func()
}

type handler func(c *console, ctx context.Context, arg string) error

var handlers = map[string]handler{
	"email": func(c *console, _ context.Context, arg string) error {
		if !c.shell.Form().Attached() {
			return authgate.ErrFormDetached
		}
		c.shell.Form().SetEmail(arg)
		return nil
	},
	"password": func(c *console, _ context.Context, arg string) error {
		if !c.shell.Form().Attached() {
			return authgate.ErrFormDetached
		}
		c.shell.Form().SetPassword(arg)
		return nil
	},
	"confirm": func(c *console, _ context.Context, arg string) error {
		if !c.shell.Form().Attached() {
			return authgate.ErrFormDetached
		}
		c.shell.Form().SetConfirmPassword(arg)
		return nil
	},
	"toggle": func(c *console, _ context.Context, _ string) error {
		if !c.shell.Form().Attached() {
			return authgate.ErrFormDetached
		}
		c.shell.Form().ToggleMode()
		return nil
	},
	"submit": func(c *console, _ context.Context, _ string) error {
		_, err := c.shell.Form().SubmitCurrent()
		return err
	},
	"profile": func(c *console, _ context.Context, _ string) error {
		return c.shell.OpenProfile()
	},
	"back": func(c *console, _ context.Context, _ string) error {
		return c.shell.Back()
	},
	"logout": func(c *console, _ context.Context, _ string) error {
		c.shell.SignOut()
		return nil
	},
	"refresh": func(c *console, ctx context.Context, _ string) error {
		r, ok := c.provider.(refresher)
		if !ok {
			return c.shell.Refresh()
		}
		go func() {
			err := r.Refresh(ctx)
			c.loop.Post(func() {
				if err != nil {
					c.logger.Warn("token refresh failed", "error", err)
				}
				if err := c.shell.Refresh(); err != nil {
					c.logger.Error("session gate after refresh failed", "error", err)
				}
			})
		}()
		return nil
	},
	"state": func(c *console, _ context.Context, _ string) error {
		fmt.Fprintf(c.out, "screen=%s stack=%v session=%s\n",
			c.shell.Current(), c.shell.Stack(), c.shell.Gate().CheckSession())
		return nil
	},
	"quit": func(c *console, _ context.Context, _ string) error {
		c.quit()
		return nil
	},
}

func commandNames() []string {
	names := make([]string, 0, len(handlers)+1)
	for name := range handlers {
		names = append(names, name)
	}
	names = append(names, "help")
	sort.Strings(names)
	return names
}

// exec runs cmd. It must be called on the loop.
func (c *console) exec(ctx context.Context, cmd command) {
	if cmd.name == "help" {
		fmt.Fprintf(c.out, "commands: %s\n", strings.Join(commandNames(), ", "))
		return
	}

	h, ok := handlers[cmd.name]
	if !ok {
		fmt.Fprintf(c.out, "unknown command %q, try help\n", cmd.name)
		return
	}

	if err := h(c, ctx, cmd.arg); err != nil {
		if authgate.HasTextCode(err, authgate.TextCodeTooManyAttempts) {
			return
		}
		fmt.Fprintf(c.out, "error: %v\n", err)
	}
}

// read posts every line of r to the loop until r ends or ctx is done.
func (c *console) read(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		cmd, ok := parseCommand(scanner.Text())
		if !ok {
			continue
		}
		c.loop.Post(func() {
			c.exec(ctx, cmd)
		})
	}
	if err := scanner.Err(); err != nil {
		c.logger.Error("reading commands failed", "error", err)
	}
	c.loop.Post(c.quit)
}

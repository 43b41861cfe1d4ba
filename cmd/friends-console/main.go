// Command friends-console is a terminal friends screen. Typing searches
// users as you go; "/help" lists the commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
	"xfriends/client"
	"xfriends/config"
	"xfriends/friends"
)

func main() {
	if err := run(); err != nil {
		logrus.Fatalf("friends-console: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	config.SetupLogging(cfg.LogLevel)
	if cfg.Username == "" || cfg.Password == "" {
		return errors.New("XFRIENDS_USERNAME and XFRIENDS_PASSWORD must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := client.New(cfg.BaseURL, client.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		return err
	}
	if err := signIn(ctx, api, cfg.Username, cfg.Password); err != nil {
		return err
	}

	events, err := api.Subscribe(ctx)
	if err != nil {
		logrus.WithError(err).Warn("live updates unavailable")
	}

	session := friends.NewSession(api, friends.Options{
		SearchDelay:     cfg.SearchDelay,
		SearchMinLength: cfg.SearchMinLen,
		ReloadSettle:    cfg.ReloadSettle,
		Events:          events,
	})
	defer session.Close()

	if err := session.Reload(ctx); err != nil {
		logrus.WithError(err).Warn("initial load incomplete")
	}

	con := newConsole(session, os.Stdout, cfg.RequestTimeout)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[32m»\033[0m ",
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
		AutoComplete:    con.tree.completer(),
		Listener: readline.FuncListener(func(line []rune, pos int, key rune) ([]rune, int, bool) {
			con.onInput(string(line))
			return nil, 0, false
		}),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()
	con.out = rl.Stdout()

	go func() {
		for {
			select {
			case <-ctx.Done():
				rl.Close()
				return
			case res := <-session.Results():
				con.showResult(res)
				rl.Refresh()
			case err := <-session.Errors():
				fmt.Fprintf(rl.Stdout(), "reload failed: %v\n", err)
				rl.Refresh()
			}
		}
	}()

	fmt.Fprintf(rl.Stdout(), "signed in as %s, type to search, /help for commands\n", cfg.Username)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("readline: %w", err)
		}
		if con.submit(line) {
			return nil
		}
	}
}

// signIn logs in, creating the account on first use.
func signIn(ctx context.Context, api *client.Client, username, password string) error {
	_, err := api.Login(ctx, username, password)
	if err == nil {
		return nil
	}
	if !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	if _, regErr := api.Register(ctx, username, password, username); regErr != nil {
		if errors.Is(regErr, client.ErrConflict) {
			return err
		}
		return regErr
	}
	logrus.WithField("username", username).Info("account created")
	return nil
}

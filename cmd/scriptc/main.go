package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/reusee/dscope"
	"github.com/reusee/scriptd/clients"
	"github.com/reusee/scriptd/cmds"
	"github.com/reusee/scriptd/modes"
	"github.com/reusee/scriptd/requests"
)

var (
	userFlag  = cmds.Var[string]("-user")
	levelFlag = cmds.Var[string]("-level")
	nameFlag  = cmds.Var[string]("-name")

	action func(ctx context.Context, client *clients.Client) error
)

func init() {
	cmds.Define("run", cmds.Func(func(path string) {
		action = runFile(path)
	}).Desc("queue a script file and wait for it"))
	cmds.Define("watch", cmds.Func(func(path string) {
		action = watchFile(path)
	}).Desc("queue a script file and push updates on every save"))
	cmds.Define("eval", cmds.Func(func(code string) {
		action = eval(code)
	}).Desc("evaluate code out of band"))
	cmds.Define("status", cmds.Func(func() {
		action = status
	}).Desc("print the daemon status"))
	cmds.Define("break", cmds.Func(func(level string) {
		action = func(ctx context.Context, client *clients.Client) error {
			return client.Break(ctx, level)
		}
	}).Desc("pause the running script: now, step or line"))
	cmds.Define("continue", cmds.Func(func() {
		action = func(ctx context.Context, client *clients.Client) error {
			return client.Continue(ctx)
		}
	}).Desc("resume the paused script"))
	cmds.Define("stop", cmds.Func(func(reason string) {
		action = func(ctx context.Context, client *clients.Client) error {
			return client.Stop(ctx, reason)
		}
	}).Desc("stop the running script"))
	cmds.Define("emergency", cmds.Func(func() {
		action = func(ctx context.Context, client *clients.Client) error {
			return client.Emergency(ctx)
		}
	}).Desc("emergency stop"))
	cmds.Define("log", cmds.Func(func(from uint64, limit int) {
		action = logbook(from, limit)
	}).Desc("print logbook entries from a sequence number"))
	cmds.Define("console", cmds.Func(func() {
		action = console
	}).Desc("interactive console"))
}

func main() {
	cmds.Execute(os.Args[1:])
	if action == nil {
		cmds.PrintUsage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dscope.New(
		new(clients.Module),
		modes.ForProduction(),
	).Call(func(
		dial clients.DialDaemon,
	) {
		client, err := dial(ctx)
		if err != nil {
			fatal(err)
		}
		defer client.Close()

		name := *userFlag
		if name == "" {
			name = os.Getenv("USER")
		}
		level := requests.UserLevel
		if *levelFlag != "" {
			level, err = requests.ParseLevel(*levelFlag)
			if err != nil {
				fatal(err)
			}
		}
		if _, err := client.Login(ctx, name, level); err != nil {
			fatal(err)
		}

		go pumpEvents(client)

		if err := action(ctx, client); err != nil {
			fatal(err)
		}
	})
}

var colored = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

func fatal(err error) {
	if colored {
		fmt.Fprintf(os.Stderr, "\033[31merror:\033[0m %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

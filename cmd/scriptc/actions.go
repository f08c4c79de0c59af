package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chzyer/readline"
	"github.com/reusee/scriptd/clients"
	"github.com/reusee/scriptd/events"
	"gopkg.in/yaml.v3"
)

func scriptName(path string) string {
	if *nameFlag != "" {
		return *nameFlag
	}
	return filepath.Base(path)
}

func runFile(path string) func(context.Context, *clients.Client) error {
	return func(ctx context.Context, client *clients.Client) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		n, err := client.Queue(ctx, scriptName(path), string(content))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "queued %d\n", n)
		return waitDone(ctx, client, n)
	}
}

func watchFile(path string) func(context.Context, *clients.Client) error {
	return func(ctx context.Context, client *clients.Client) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		n, err := client.Queue(ctx, scriptName(path), string(content))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "queued %d\n", n)

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := clients.WatchFile(watchCtx, path, func(content []byte) error {
				if err := client.Update(watchCtx, n, string(content)); err != nil {
					fmt.Fprintf(os.Stderr, "update rejected: %v\n", err)
				} else {
					fmt.Fprintf(os.Stderr, "updated %d\n", n)
				}
				return nil
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			}
		}()

		return waitDone(ctx, client, n)
	}
}

func waitDone(ctx context.Context, client *clients.Client, n int64) error {
	for {
		select {
		case payload := <-dones:
			if payload.Number != n {
				continue
			}
			switch {
			case payload.Success:
				fmt.Fprintf(os.Stderr, "done %d in %v\n", n, payload.Duration)
				return nil
			case payload.Stopped:
				return fmt.Errorf("stopped: %s", payload.Reason)
			default:
				return errors.New(payload.Error)
			}
		case <-client.Done():
			return errors.New("connection closed")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func eval(code string) func(context.Context, *clients.Client) error {
	return func(ctx context.Context, client *clients.Client) error {
		res, err := client.Eval(ctx, code)
		if err != nil {
			return err
		}
		if res != "" {
			fmt.Println(res)
		}
		return nil
	}
}

func status(ctx context.Context, client *clients.Client) error {
	s, err := client.Status(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

func logbook(from uint64, limit int) func(context.Context, *clients.Client) error {
	return func(ctx context.Context, client *clients.Client) error {
		entries, err := client.Logbook(ctx, from, limit)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			line := fmt.Sprintf("%d %s %s #%d %s %s",
				entry.Seq,
				entry.Time.Format(time.RFC3339),
				entry.Kind,
				entry.Number,
				entry.Name,
				entry.User,
			)
			if entry.Outcome != "" {
				line += " " + entry.Outcome
			}
			if entry.Error != "" {
				line += ": " + entry.Error
			}
			fmt.Println(line)
		}
		return nil
	}
}

func console(ctx context.Context, client *clients.Client) error {
	var historyFile string
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".scriptc_history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      ">>> ",
		HistoryFile: historyFile,
	})
	if err != nil {
		return err
	}
	defer rl.Close()
	for {
		line, err := rl.Readline()
		if err != nil { // Ctrl-C or Ctrl-D
			return nil
		}
		if line == "" {
			continue
		}
		n, err := client.Queue(ctx, "", line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if err := waitDone(ctx, client, n); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

var dones = make(chan events.DonePayload, 64)

// pumpEvents prints log messages pushed by the daemon and hands done events
// to waitDone.
func pumpEvents(client *clients.Client) {
	for ev := range client.Events() {
		switch ev.Name {

		case events.Message:
			var msg events.MessagePayload
			if err := json.Unmarshal(ev.Payload, &msg); err != nil {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s %s", msg.Level, msg.Message)
			for k, v := range msg.Attrs {
				fmt.Fprintf(os.Stderr, " %s=%s", k, v)
			}
			fmt.Fprintln(os.Stderr)

		case events.Done:
			var payload events.DonePayload
			if err := json.Unmarshal(ev.Payload, &payload); err != nil {
				continue
			}
			select {
			case dones <- payload:
			default:
			}
		}
	}
}

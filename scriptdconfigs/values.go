package scriptdconfigs

import (
	"path/filepath"
	"time"

	"github.com/reusee/scriptd/cmds"
	"github.com/reusee/scriptd/configs"
	"github.com/reusee/scriptd/modes"
	"github.com/reusee/scriptd/vars"
)

type ListenAddr string

var listenFlag = cmds.Var[string]("-listen")

func (Module) ListenAddr(
	mode modes.Mode,
	loader configs.Loader,
) ListenAddr {
	if mode == modes.ModeDevelopment {
		return "127.0.0.1:0"
	}
	return vars.FirstNonZero(
		ListenAddr(*listenFlag),
		configs.First[ListenAddr](loader, "listen"),
		"127.0.0.1:14869",
	)
}

type DaemonAddr string

var addrFlag = cmds.Var[string]("-addr")

func (Module) DaemonAddr(
	loader configs.Loader,
) DaemonAddr {
	return vars.FirstNonZero(
		DaemonAddr(*addrFlag),
		configs.First[DaemonAddr](loader, "daemon_addr"),
		configs.First[DaemonAddr](loader, "listen"),
		"127.0.0.1:14869",
	)
}

type MaxClients int

func (Module) MaxClients(
	loader configs.Loader,
) MaxClients {
	return configs.FirstOr[MaxClients](loader, "max_clients", 64)
}

type DBPath string

var dbFlag = cmds.Var[string]("-db")

func (Module) DBPath(
	mode modes.Mode,
	loader configs.Loader,
) DBPath {
	if mode == modes.ModeDevelopment {
		// empty disables the logbook store
		return DBPath(*dbFlag)
	}
	return vars.FirstNonZero(
		DBPath(*dbFlag),
		configs.First[DBPath](loader, "db_path"),
		"scriptd.db",
	)
}

type RecordScripts bool

func (Module) RecordScripts(
	loader configs.Loader,
) RecordScripts {
	return configs.FirstOr[RecordScripts](loader, "record_scripts", true)
}

type MetricsAddr string

var metricsFlag = cmds.Var[string]("-metrics")

func (Module) MetricsAddr(
	loader configs.Loader,
) MetricsAddr {
	return vars.FirstNonZero(
		MetricsAddr(*metricsFlag),
		configs.First[MetricsAddr](loader, "metrics_addr"),
	)
}

type SetupCode []string

func (Module) SetupCode(
	loader configs.Loader,
) SetupCode {
	return configs.First[SetupCode](loader, "setup")
}

type FallbackSetupCode []string

func (Module) FallbackSetupCode(
	loader configs.Loader,
) FallbackSetupCode {
	return configs.First[FallbackSetupCode](loader, "fallback_setup")
}

type ScriptDir string

func (Module) ScriptDir(
	loader configs.Loader,
) ScriptDir {
	dir := configs.First[string](loader, "script_dir")
	if dir == "" {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return ScriptDir(dir)
}

type WatchInterval time.Duration

func (Module) WatchInterval(
	mode modes.Mode,
	loader configs.Loader,
) WatchInterval {
	if mode == modes.ModeDevelopment {
		return 0
	}
	return WatchInterval(parseDuration(
		configs.First[string](loader, "watch_interval"),
		time.Second,
	))
}

type NotifyAfter time.Duration

func (Module) NotifyAfter(
	loader configs.Loader,
) NotifyAfter {
	return NotifyAfter(parseDuration(
		configs.First[string](loader, "notify_after"),
		10*time.Minute,
	))
}

type NotifyWebhook string

func (Module) NotifyWebhook(
	loader configs.Loader,
) NotifyWebhook {
	return configs.First[NotifyWebhook](loader, "notify_webhook")
}

// Namespace holds values preset into the script namespace on every reset.
type Namespace map[string]any

func (Module) Namespace(
	loader configs.Loader,
) Namespace {
	return configs.First[Namespace](loader, "namespace")
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

package scriptdconfigs

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/reusee/scriptd/configs"
	"github.com/reusee/scriptd/logs"
)

//go:embed schema.cue
var Schema string

var filenames = []string{
	"scriptd.cue",
	".scriptd.cue",
}

// SearchDirs returns the directories searched for config files, most
// specific first.
func SearchDirs() (ret []string) {
	if dir, err := os.Getwd(); err == nil {
		ret = append(ret, dir)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		ret = append(ret, dir)
	}
	ret = append(ret, "/etc")
	return
}

func FindFiles(dirs []string) (paths []string) {
	for _, dir := range dirs {
		for _, filename := range filenames {
			path := filepath.Join(dir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}
	return
}

func (Module) ConfigsLoader(
	logger logs.Logger,
) configs.Loader {
	paths := FindFiles(SearchDirs())
	if len(paths) > 0 {
		logger.Info("config file",
			"paths", paths,
		)
	}
	return configs.NewLoader(paths, Schema)
}

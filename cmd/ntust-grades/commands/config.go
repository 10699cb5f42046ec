package commands

import (
	"os"

	"ntust-grades/lib/configutil"
)

const configFile = "ntust-grades.json5"

// Config holds defaults for the command line flags, flags given explicitly
// always win. Credentials are never read from here.
type Config struct {
	Format   string `json:"format"`
	Db       string `json:"db"`
	DumpHttp string `json:"dump_http"`
	Verbose  bool   `json:"verbose"`
}

func readConfig() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config](configFile)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	return cfg, err
}

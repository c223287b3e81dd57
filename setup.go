// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xmidt-org/arrange"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// envPrefix lets any configuration key be set from the environment, e.g.
// STREAMDEX_PHOTOS_MAXSIZE for photos.maxSize.
const envPrefix = "STREAMDEX_"

// envBindings are the bare environment variables the service has always
// honored, mapped to their configuration keys.
var envBindings = map[string]string{
	"INDEX_DB":       "index.database",
	"TTL":            "index.ttl",
	"NOTION_API_KEY": "notion.apiKey",
}

// errVersionRequested is returned by setup once version information has
// been printed.
var errVersionRequested = errors.New("version requested")

func setupFlagSet(fs *pflag.FlagSet) {
	fs.StringP("file", "f", "", "the configuration file to use.  Overrides the search path.")
	fs.BoolP("debug", "d", false, "enables debug logging.  Overrides configuration.")
	fs.BoolP("version", "v", false, "print version and exit")
}

func setup(args []string, environ []string, out io.Writer) (*viper.Viper, *zap.Logger, error) {
	l, err := zap.NewDevelopment() // initial value
	if err != nil {
		return nil, l, fmt.Errorf("failed to create zap logger: %w", err)
	}

	fs := pflag.NewFlagSet(applicationName, pflag.ContinueOnError)
	setupFlagSet(fs)
	err = fs.Parse(args)
	if err != nil {
		return nil, l, fmt.Errorf("failed to create parse args: %w", err)
	}
	if printVersion, _ := fs.GetBool("version"); printVersion {
		printVersionInfo(out)
		return nil, l, errVersionRequested
	}

	v := viper.New()

	if file, _ := fs.GetString("file"); len(file) > 0 {
		v.SetConfigFile(file)
		err = v.ReadInConfig()
	} else {
		v.SetConfigName(applicationName)
		v.AddConfigPath(fmt.Sprintf("/etc/%s", applicationName))
		v.AddConfigPath(fmt.Sprintf("$HOME/.%s", applicationName))
		v.AddConfigPath(".")
		err = v.ReadInConfig()

		// the environment alone is a complete configuration
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			err = nil
		}
	}
	if err != nil {
		return v, l, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = mergeEnvironment(v, environ); err != nil {
		return v, l, fmt.Errorf("failed to merge environment: %w", err)
	}

	if debug, _ := fs.GetBool("debug"); debug {
		err = v.MergeConfigMap(map[string]interface{}{
			"logging": map[string]interface{}{"level": "DEBUG"},
		})
		if err != nil {
			return v, l, err
		}
	}

	var c sallust.Config
	err = v.UnmarshalKey("logging", &c, arrange.ComposeDecodeHooks(sallust.DecodeHook))
	if err != nil {
		return v, l, err
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = []string{"stdout"}
	}
	if len(c.ErrorOutputPaths) == 0 {
		c.ErrorOutputPaths = []string{"stderr"}
	}

	l, err = c.Build()
	return v, l, err
}

// mergeEnvironment layers environment variables over the configuration
// file. Viper's own env binding doesn't reach nested structs decoded by
// UnmarshalKey, so the variables are merged as a config map instead.
func mergeEnvironment(v *viper.Viper, environ []string) error {
	settings := make(map[string]interface{})
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || len(value) == 0 {
			continue
		}

		key, bound := envBindings[name]
		if !bound {
			if !strings.HasPrefix(name, envPrefix) {
				continue
			}
			key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, envPrefix), "_", "."))
		}
		if len(key) == 0 {
			continue
		}

		// a bare number of seconds is accepted for the index ttl
		if strings.EqualFold(key, "index.ttl") {
			if seconds, err := cast.ToInt64E(value); err == nil {
				value = (time.Duration(seconds) * time.Second).String()
			}
		}
		setNested(settings, strings.Split(key, "."), value)
	}

	if len(settings) == 0 {
		return nil
	}
	return v.MergeConfigMap(settings)
}

func setNested(m map[string]interface{}, path []string, value string) {
	for _, p := range path[:len(path)-1] {
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[p] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

func printVersionInfo(out io.Writer) {
	fmt.Fprintf(out, "%s:\n", applicationName)
	fmt.Fprintf(out, "  version: \t%s\n", Version)
	fmt.Fprintf(out, "  go version: \t%s\n", runtime.Version())
	fmt.Fprintf(out, "  built time: \t%s\n", BuildTime)
	fmt.Fprintf(out, "  git commit: \t%s\n", GitCommit)
	fmt.Fprintf(out, "  os/arch: \t%s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// exitCode maps a setup or startup error to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, errVersionRequested), errors.Is(err, pflag.ErrHelp):
		return 0
	default:
		return 1
	}
}

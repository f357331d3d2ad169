// go-ucomms
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ucomms.
//
// go-ucomms is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ucomms is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ucomms; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ZaparooProject/go-ucomms"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every subcommand
type app struct {
	v      *viper.Viper
	log    zerolog.Logger
	out    *Output
	config Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New()}
	var configFile string

	root := &cobra.Command{
		Use:   "ucomms",
		Short: "Talk to a microcontroller over framed serial or I2C",
		Long: `ucomms sends and receives START/LENGTH/PAYLOAD/STOP frames.

Frames start with 0x02, carry a one byte length and up to 62 payload bytes,
and end with 0x03. 0x10 aborts a frame in progress.

Settings come from flags, UCOMMS_* environment variables or a config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, configFile, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (TOML, YAML or JSON)")
	flags.StringP(keyPort, "p", "", "serial port; detected when empty")
	flags.IntP(keyBaud, "b", 9600, "baud rate")
	flags.Duration(keyTimeout, 2*time.Second, "read, reply and detection timeout")
	flags.Duration("idle-timeout", 500*time.Millisecond, "abort a partial frame after this much silence (0 disables)")
	flags.Int(keyHistory, 32, "completed frames kept in memory")
	flags.String(keyI2C, "", "use I2C instead of serial: bus[:addr], e.g. 1:0x24")
	flags.BoolP(keyDebug, "d", false, "debug logging")

	for key, flag := range map[string]string{
		keyPort:        keyPort,
		keyBaud:        keyBaud,
		keyTimeout:     keyTimeout,
		keyIdleTimeout: "idle-timeout",
		keyHistory:     keyHistory,
		keyI2C:         keyI2C,
		keyDebug:       keyDebug,
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newListenCmd(a),
		newSendCmd(a),
		newDecodeCmd(a),
		newReplayCmd(a),
		newPortsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, configFile string, stdout, stderr io.Writer) error {
	setDefaults(a.v)
	a.v.SetEnvPrefix("UCOMMS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if configFile != "" {
		a.v.SetConfigFile(configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		a.v.SetConfigName("ucomms")
		a.v.AddConfigPath(".")
		if home, err := os.UserConfigDir(); err == nil {
			a.v.AddConfigPath(home + "/ucomms")
		}
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg, err := loadConfig(a.v)
	if err != nil {
		return err
	}
	a.config = cfg
	a.log = newLogger(stderr, cfg.Debug)
	a.out = NewOutput(stdout)

	ucomms.SetLogger(a.log.With().Str("lib", "ucomms").Logger())
	ucomms.SetDebugEnabled(cfg.Debug)
	a.log.Debug().Str("command", cmd.Name()).Str("config", a.v.ConfigFileUsed()).Msg("configuration loaded")
	return nil
}

func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}).
		Level(level).
		With().Timestamp().
		Logger()
}

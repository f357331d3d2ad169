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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keys, shared by flags, environment (UCOMMS_*) and the config file
const (
	keyPort        = "port"
	keyBaud        = "baud"
	keyTimeout     = "timeout"
	keyIdleTimeout = "idle_timeout"
	keyHistory     = "history"
	keyDebug       = "debug"
	keyI2C         = "i2c"
)

var errNoPort = errors.New("no port given and none detected")

// Config is the resolved CLI configuration
type Config struct {
	Port        string
	I2C         string
	Baud        int
	Timeout     time.Duration
	IdleTimeout time.Duration
	History     int
	Debug       bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBaud, 9600)
	v.SetDefault(keyTimeout, 2*time.Second)
	v.SetDefault(keyIdleTimeout, 500*time.Millisecond)
	v.SetDefault(keyHistory, 32)
	v.SetDefault(keyDebug, false)
}

func loadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:        strings.TrimSpace(v.GetString(keyPort)),
		I2C:         strings.TrimSpace(v.GetString(keyI2C)),
		Baud:        v.GetInt(keyBaud),
		Timeout:     v.GetDuration(keyTimeout),
		IdleTimeout: v.GetDuration(keyIdleTimeout),
		History:     v.GetInt(keyHistory),
		Debug:       v.GetBool(keyDebug),
	}
	if cfg.Baud <= 0 {
		return Config{}, fmt.Errorf("baud must be positive, got %d", cfg.Baud)
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("timeout must be positive, got %v", cfg.Timeout)
	}
	if cfg.IdleTimeout < 0 {
		return Config{}, fmt.Errorf("idle_timeout cannot be negative, got %v", cfg.IdleTimeout)
	}
	if cfg.History < 0 {
		return Config{}, fmt.Errorf("history cannot be negative, got %d", cfg.History)
	}
	if cfg.I2C != "" {
		if _, _, err := parseI2CTarget(cfg.I2C); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// parseI2CTarget splits "bus[:addr]". The address defaults to 0 so the
// transport picks its own default.
func parseI2CTarget(s string) (bus string, addr uint16, err error) {
	bus, rawAddr, found := strings.Cut(s, ":")
	if bus == "" {
		return "", 0, fmt.Errorf("invalid i2c target %q: missing bus", s)
	}
	if !found {
		return bus, 0, nil
	}
	n, err := strconv.ParseUint(rawAddr, 0, 7)
	if err != nil {
		return "", 0, fmt.Errorf("invalid i2c address %q: %w", rawAddr, err)
	}
	return bus, uint16(n), nil
}

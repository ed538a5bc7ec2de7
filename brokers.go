// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const defaultBrokerPort = "9092"

// parseBrokers splits a broker list of the form "host[:port][,host[:port]...]"
// into "host:port" seed addresses. Entries may carry a "scheme://" prefix,
// which is ignored, and default to port 9092. Invalid entries are returned
// in skipped. When no entry is usable the error wraps ErrNoValidBrokers.
func parseBrokers(list string) (seeds []string, skipped []string, err error) {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		addr, ok := normalizeBroker(field)
		if !ok {
			skipped = append(skipped, field)
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		seeds = append(seeds, addr)
	}

	if len(seeds) == 0 {
		return nil, skipped, errors.Join(ErrNoValidBrokers,
			fmt.Errorf("broker list %q has no usable address", list))
	}

	return seeds, skipped, nil
}

// normalizeBroker converts a single broker entry into "host:port".
func normalizeBroker(entry string) (string, bool) {
	if i := strings.Index(entry, "://"); i >= 0 {
		entry = entry[i+3:]
	}
	entry = strings.TrimSuffix(entry, "/")
	if entry == "" {
		return "", false
	}

	host, port, err := net.SplitHostPort(entry)
	if err != nil {
		// No port, or a bare IPv6 address.
		host = strings.TrimSuffix(strings.TrimPrefix(entry, "["), "]")
		port = defaultBrokerPort
	}

	if host == "" || strings.ContainsAny(host, "/[]@") {
		return "", false
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", false
	}

	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", false
	}

	return net.JoinHostPort(host, port), true
}

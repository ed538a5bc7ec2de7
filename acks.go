// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import (
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Acks specifies the broker acknowledgment requirements, expressed the way
// request.required.acks is written in configuration.
type Acks string

const (
	// AcksAll requires all ISR replicas to acknowledge (strongest durability).
	AcksAll Acks = "-1"

	// AcksLeader requires only the leader replica to acknowledge.
	AcksLeader Acks = "1"

	// AcksNone requires no acknowledgment (fire-and-forget).
	AcksNone Acks = "0"
)

var acksTypes map[string]Acks
var acksList []string

func init() {
	acksTypes = map[string]Acks{
		"-1":  AcksAll,
		"all": AcksAll,
		"1":   AcksLeader,
		"0":   AcksNone,
	}

	acksList = []string{"-1", "all", "1", "0"}
}

// parseAcks normalizes a request.required.acks value.
func parseAcks(s string) (Acks, error) {
	a, ok := acksTypes[strings.ToLower(strings.TrimSpace(s))]
	if ok {
		return a, nil
	}

	list := strings.Join(acksList, "', '")
	list = "'" + list + "'"
	return "", fmt.Errorf("acks '%s' is invalid: must be %s", s, list)
}

// kgo converts the Acks value into its franz-go form.
func (a Acks) kgo() kgo.Acks {
	switch a {
	case AcksLeader:
		return kgo.LeaderAck()
	case AcksNone:
		return kgo.NoAck()
	default:
		return kgo.AllISRAcks()
	}
}

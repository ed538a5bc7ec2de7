// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package kafkalite

import "github.com/twmb/franz-go/pkg/kgo"

// nopLogger, the default logger, drops everything. It also replaces
// franz-go's own logging; log output is the embedding host's business.
type nopLogger struct{}

func (*nopLogger) Level() kgo.LogLevel { return kgo.LogLevelNone }
func (*nopLogger) Log(kgo.LogLevel, string, ...any) {
}

// logAt logs through l when l is enabled for level.
func logAt(l kgo.Logger, level kgo.LogLevel, msg string, keyvals ...any) {
	if l == nil || l.Level() < level {
		return
	}
	l.Log(level, msg, keyvals...)
}

// Copyright (c) 2018 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package instrument

import (
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

const defaultReportInterval = 100 * time.Millisecond

// Options bundles the ambient concerns this repository reports through: a
// structured logger, a metrics scope, and the interval at which periodic
// reporters (the build, version and runtime metrics reporters) tick.
type Options interface {
	// SetLogger sets the logger.
	SetLogger(value *zap.SugaredLogger) Options

	// Logger returns the logger.
	Logger() *zap.SugaredLogger

	// SetMetricsScope sets the metrics scope.
	SetMetricsScope(value tally.Scope) Options

	// MetricsScope returns the metrics scope.
	MetricsScope() tally.Scope

	// SetReportInterval sets the interval between periodic metric reports.
	SetReportInterval(value time.Duration) Options

	// ReportInterval returns the interval between periodic metric reports.
	ReportInterval() time.Duration
}

// Reporter is a periodic reporter that can be started and stopped; the
// build reporter implements it.
type Reporter interface {
	Start() error
	Stop() error
}

// VersionReporter reports the running binary's version information until
// closed.
type VersionReporter interface {
	Start() error
	Close() error
}

type options struct {
	logger         *zap.SugaredLogger
	scope          tally.Scope
	reportInterval time.Duration
}

// NewOptions returns a new set of instrument Options with reasonable
// defaults: a no-op logger, the no-op tally scope, and a 100ms report
// interval.
func NewOptions() Options {
	return &options{
		logger:         zap.NewNop().Sugar(),
		scope:          tally.NoopScope,
		reportInterval: defaultReportInterval,
	}
}

func (o *options) SetLogger(value *zap.SugaredLogger) Options {
	opts := *o
	opts.logger = value
	return &opts
}

func (o *options) Logger() *zap.SugaredLogger {
	return o.logger
}

func (o *options) SetMetricsScope(value tally.Scope) Options {
	opts := *o
	opts.scope = value
	return &opts
}

func (o *options) MetricsScope() tally.Scope {
	return o.scope
}

func (o *options) SetReportInterval(value time.Duration) Options {
	opts := *o
	opts.reportInterval = value
	return &opts
}

func (o *options) ReportInterval() time.Duration {
	return o.reportInterval
}

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

// Package message defines the tagged-union envelope carried on the pool's
// priority and normal channels.
package message

// Job is a unit of work submitted to a pool: owned, runnable exactly once,
// no arguments, no return value.
type Job func()

// Kind discriminates the two Message variants.
type Kind uint8

const (
	// KindNewJob carries a Job to be executed by whichever worker dequeues it.
	KindNewJob Kind = iota
	// KindTerminate carries a target worker id; 0 means "all workers".
	KindTerminate
)

// AllWorkers is the Terminate target meaning "every worker should retire".
const AllWorkers = 0

// Message is the tagged union pushed onto a pool's channels. Construct one
// with NewJob or Terminate; inspect it with Kind/Job/Target.
type Message struct {
	kind   Kind
	job    Job
	target int
}

// NewJob wraps a job as a KindNewJob message.
func NewJob(job Job) Message {
	return Message{kind: KindNewJob, job: job}
}

// Terminate wraps a target worker id as a KindTerminate message. target == 0
// addresses every worker; any other value addresses the worker whose id
// equals target.
func Terminate(target int) Message {
	return Message{kind: KindTerminate, target: target}
}

// Kind reports which variant this message holds.
func (m Message) Kind() Kind {
	return m.kind
}

// Job returns the wrapped job. Only meaningful when Kind() == KindNewJob.
func (m Message) Job() Job {
	return m.job
}

// Target returns the termination target. Only meaningful when
// Kind() == KindTerminate.
func (m Message) Target() int {
	return m.target
}

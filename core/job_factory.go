package core

import (
	"fmt"
	"sync"
)

// JobConstructor builds a Job instance from a JobDetail's data map.
type JobConstructor func(detail *JobDetail) (Job, error)

// DefaultJobFactory resolves JobDetail.JobClass against a registry of
// named constructors. This is the Go-idiomatic analogue of Quartz's
// reflective class instantiation (spec.md §4 "JobFactory"): instead of
// loading a class by fully-qualified name, callers register a constructor
// function under a short name once at startup.
type DefaultJobFactory struct {
	mu           sync.RWMutex
	constructors map[string]JobConstructor
}

// NewDefaultJobFactory returns an empty factory; register job classes with
// Register before handing it to a SchedulerCore.
func NewDefaultJobFactory() *DefaultJobFactory {
	return &DefaultJobFactory{constructors: make(map[string]JobConstructor)}
}

// Register associates a job class name with a constructor. Registering the
// same name twice replaces the earlier constructor.
func (f *DefaultJobFactory) Register(jobClass string, ctor JobConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[jobClass] = ctor
}

// NewJob implements JobFactory.
func (f *DefaultJobFactory) NewJob(detail *JobDetail) (Job, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[detail.JobClass]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: job class %q", ErrObjectNotFound, detail.JobClass)
	}
	return ctor(detail)
}

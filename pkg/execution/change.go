package execution

import (
	"fmt"

	"github.com/stridebuild/stride/pkg/fingerprint"
)

// Change is a single detected difference between two executions. File-backed
// changes additionally carry the owning property, path and change kind so the
// incremental input delta can be rebuilt from the same stream that produced
// the human-readable messages.
type Change struct {
	Message  string
	Property string
	Path     string
	Kind     fingerprint.ChangeKind
}

// ChangeVisitor consumes a stream of changes. Returning false stops the
// enumeration; the same mechanism implements both "first N messages"
// truncation and "stop at the first difference".
type ChangeVisitor func(Change) bool

// ChangeContainer is a source of changes. Accept enumerates them in order and
// returns false if the visitor stopped the enumeration early, true otherwise.
type ChangeContainer interface {
	Accept(visitor ChangeVisitor) bool
}

// Describable names the unit of work being compared, for use in change
// messages.
type Describable interface {
	DisplayName() string
}

// Description is a plain-string Describable.
type Description string

func (d Description) DisplayName() string { return string(d) }

// summarizingChangeContainer visits an ordered sequence of child containers,
// abandoning the rest of the sequence as soon as a visitor stops. Children
// must be ordered cheapest first: any change found by an early child already
// forces a rebuild, making later, more expensive comparisons wasted work.
type summarizingChangeContainer struct {
	children []ChangeContainer
}

// NewSummarizingChangeContainer composes child containers into one, visited
// in the given order.
func NewSummarizingChangeContainer(children ...ChangeContainer) ChangeContainer {
	return &summarizingChangeContainer{children: children}
}

func (c *summarizingChangeContainer) Accept(visitor ChangeVisitor) bool {
	for _, child := range c.children {
		if !child.Accept(visitor) {
			return false
		}
	}
	return true
}

// errorHandlingChangeContainer converts a panicking comparator into a single
// synthetic change naming the failed work. Detection therefore always
// completes, and the surfaced change biases toward a safe full rebuild
// instead of a silent up-to-date verdict.
type errorHandlingChangeContainer struct {
	executable Describable
	delegate   ChangeContainer
}

// NewErrorHandlingChangeContainer wraps a delegate so comparator failures
// surface as changes rather than crashing the detection pass.
func NewErrorHandlingChangeContainer(executable Describable, delegate ChangeContainer) ChangeContainer {
	return &errorHandlingChangeContainer{executable: executable, delegate: delegate}
}

func (c *errorHandlingChangeContainer) Accept(visitor ChangeVisitor) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			result = visitor(Change{
				Message: fmt.Sprintf("Cannot determine changes for %s: %v", c.executable.DisplayName(), r),
			})
		}
	}()
	return c.delegate.Accept(visitor)
}

// cachingChangeContainer memoizes the bounded change list of its delegate so
// that a second visit within the same detection pass (once for logging, once
// for building the incremental delta) does not redo the comparison. The cache
// is only kept when the delegate was fully enumerated and stayed within the
// configured limit; a truncated or oversized enumeration is incomplete and
// must be re-derived from the delegate.
type cachingChangeContainer struct {
	delegate  ChangeContainer
	maxCached int
	cache     []Change
	cached    bool
}

// NewCachingChangeContainer wraps a delegate with a bounded memoizing cache.
func NewCachingChangeContainer(maxCached int, delegate ChangeContainer) ChangeContainer {
	return &cachingChangeContainer{delegate: delegate, maxCached: maxCached}
}

func (c *cachingChangeContainer) Accept(visitor ChangeVisitor) bool {
	if c.cached {
		for _, change := range c.cache {
			if !visitor(change) {
				return false
			}
		}
		return true
	}

	collected := make([]Change, 0, c.maxCached)
	overLimit := false
	result := c.delegate.Accept(func(change Change) bool {
		if len(collected) < c.maxCached {
			collected = append(collected, change)
		} else {
			overLimit = true
		}
		return visitor(change)
	})

	if result && !overLimit {
		c.cache = collected
		c.cached = true
	}
	return result
}

// collectChanges gathers up to maxMessages change messages from a container.
// Callers must not infer "exactly N changes" from a full list, only "at least
// one, at most N reported".
func collectChanges(changes ChangeContainer, maxMessages int) []string {
	var messages []string
	changes.Accept(func(change Change) bool {
		messages = append(messages, change.Message)
		return len(messages) < maxMessages
	})
	return messages
}

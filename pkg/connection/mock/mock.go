// Package mock provides a scripted test double for the connection package.
//
// Tests script per-procedure results and errors, then inspect the recorded
// calls:
//
//	ch := &mock.Channel{
//	    Results: map[string]json.RawMessage{
//	        "init_recording": json.RawMessage(`"rec-1"`),
//	    },
//	}
//	// ... run code under test ...
//	calls := ch.CallsTo("init_challenge")
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/itslanguage/itslanguage-go/pkg/connection"
)

// Call records a single invocation of Channel.Call.
type Call struct {
	// Procedure is the remote procedure name passed to Call.
	Procedure string
	// Args are the positional arguments passed to Call.
	Args []any
	// Kwargs are the named arguments passed to Call.
	Kwargs map[string]any
}

// Channel is a mock implementation of connection.Channel. The zero value is
// a connected channel that answers every call with JSON null.
type Channel struct {
	mu sync.Mutex

	// Offline, when true, makes Connected report false.
	Offline bool

	// Results maps a procedure name to the raw result returned for it.
	Results map[string]json.RawMessage

	// Errors maps a procedure name to the error returned for it. Errors
	// take precedence over Results.
	Errors map[string]error

	// Hang lists procedures whose Call blocks until the context is done
	// and then returns ctx.Err(). Takes precedence over Errors and Results.
	Hang map[string]bool

	// OnCall, if non-nil, is invoked synchronously for every Call after it
	// has been recorded. Useful for signalling test goroutines.
	OnCall func(c Call)

	// Calls records every invocation in order.
	Calls []Call
}

// Call records the invocation and returns the scripted error or result.
func (c *Channel) Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	call := Call{Procedure: procedure, Args: args, Kwargs: kwargs}
	c.Calls = append(c.Calls, call)
	hook := c.OnCall
	hang := c.Hang[procedure]
	err := c.Errors[procedure]
	result, ok := c.Results[procedure]
	c.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return json.RawMessage(`null`), nil
	}
	return result, nil
}

// Connected reports the inverse of Offline.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.Offline
}

// Procedures returns the procedure names of all recorded calls in order.
func (c *Channel) Procedures() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.Calls))
	for i, call := range c.Calls {
		names[i] = call.Procedure
	}
	return names
}

// CallsTo returns all recorded calls to the given procedure.
func (c *Channel) CallsTo(procedure string) []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Call
	for _, call := range c.Calls {
		if call.Procedure == procedure {
			out = append(out, call)
		}
	}
	return out
}

// CallCount reports how many calls were made in total.
func (c *Channel) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Ensure Channel implements connection.Channel at compile time.
var _ connection.Channel = (*Channel)(nil)

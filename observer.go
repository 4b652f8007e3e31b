package ptnet

import "context"

// Observer is told about every firing attempt once the machine has released
// its lock. Observers cannot affect the outcome of a firing.
type Observer interface {
	Committed(ctx context.Context, machine string, rec Record)
	Rejected(ctx context.Context, machine string, transition string, err error)
}

// Observers fans every notification out to each member in order.
type Observers []Observer

var _ Observer = Observers(nil)

func (oo Observers) Committed(ctx context.Context, machine string, rec Record) {
	for _, o := range oo {
		o.Committed(ctx, machine, rec.Clone())
	}
}

func (oo Observers) Rejected(ctx context.Context, machine string, transition string, err error) {
	for _, o := range oo {
		o.Rejected(ctx, machine, transition, err)
	}
}

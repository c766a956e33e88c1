package tracking

import (
	"context"
	"time"
)

// Source is a positioning collaborator that pushes raw fixes until it runs
// out or ctx ends.
type Source interface {
	Stream(ctx context.Context, out chan<- RawFix) error
}

// Consume feeds every fix from src into the pipeline queue. It returns the
// source's error, or the pipeline's if it closed first.
func (p *Pipeline) Consume(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fixes := make(chan RawFix)
	errc := make(chan error, 1)
	go func() {
		errc <- src.Stream(ctx, fixes)
		close(fixes)
	}()

	var submitErr error
	for fix := range fixes {
		if submitErr != nil {
			continue
		}
		if err := p.Submit(ctx, fix); err != nil {
			submitErr = err
			cancel()
		}
	}

	err := <-errc
	if submitErr != nil {
		return submitErr
	}
	return err
}

// ReplaySource emits recorded fixes at a fixed interval. When Now is set the
// timestamps are shifted so the first fix is stamped Now() at emission,
// keeping the original spacing.
type ReplaySource struct {
	Fixes    []RawFix
	Interval time.Duration
	Now      func() time.Time
}

func (r ReplaySource) Stream(ctx context.Context, out chan<- RawFix) error {
	var shift time.Duration
	for i, fix := range r.Fixes {
		if i > 0 && r.Interval > 0 {
			timer := time.NewTimer(r.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if r.Now != nil {
			if i == 0 {
				shift = r.Now().Sub(fix.Timestamp)
			}
			fix.Timestamp = fix.Timestamp.Add(shift)
		}
		select {
		case out <- fix:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

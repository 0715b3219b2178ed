package main

import (
	"context"
	"sync"
)

// AccountResult is one account's outcome from a fan-out run.
type AccountResult struct {
	Name    string
	Message string
	Err     error
}

// RunForAccounts runs fn once per account concurrently and returns
// the results in the same order as the input. A failing account never
// disturbs the others.
func RunForAccounts(ctx context.Context, names []string, fn func(ctx context.Context, name string) (string, error)) []AccountResult {
	results := make([]AccountResult, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			message, err := fn(ctx, name)
			results[i] = AccountResult{Name: name, Message: message, Err: err}
		}(i, name)
	}
	wg.Wait()

	return results
}

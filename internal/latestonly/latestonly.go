/*
Copyright 2022-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

// Package latestonly implements a channel pipe that never blocks its
// writer by discarding older, unconsumed values once a newer one arrives.
package latestonly

// Wrap is meant for a producer (a poll loop) that must never stall waiting
// on a slow consumer: if a fresher value arrives before the previous one
// has been read off outputCh, the stale one is dropped rather than queued.
// Close inputCh to release the goroutine this starts.
func Wrap[T any](inputCh <-chan T) <-chan T {
	outputCh := make(chan T)

	go func() {
	MainLoop:
		for {
			latestData, ok := <-inputCh
			if !ok {
				break MainLoop
			}

		SendLoop:
			for {
				select {
				case outputCh <- latestData:
					break SendLoop
				case updatedData, ok := <-inputCh:
					if !ok {
						break MainLoop
					}
					latestData = updatedData
				}
			}
		}

		close(outputCh)
	}()

	return outputCh
}

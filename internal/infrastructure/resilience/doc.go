/*
Package resilience provides a circuit breaker for calls to optional external
capabilities.

The sandbox uses it around the attestation daemon: when the daemon is down,
calls fail fast instead of each waiting for a socket timeout.

# Usage

	breaker := resilience.New("tee", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	info, err := resilience.Do(breaker, func() (*Info, error) {
		return client.fetchInfo(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience

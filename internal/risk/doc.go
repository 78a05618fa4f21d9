/*
Risk implements the pre-trade gate that sits between order entry and the
market.

# Module
  - limits: immutable per-account limit profile
  - checker: ordered pre-trade check cascade plus the session state it reads
  - breaker: per-instrument fill-stream circuit breaker with a fixed window
  - margin: stateless initial/maintenance margin and liquidation pricing

# Contract
  - every arithmetic path saturates; no input may panic or wrap
  - Evaluate is pure and allocation-free on the accept path
  - no locks: one goroutine owns each checker and breaker, the caller
    serializes

# Sharded
  - checker per account, breaker per instrument
*/
package risk

package storecrawl

import "fmt"

// CrawlerState is the lifecycle state of a Crawler instance. It is owned by
// the lifecycle methods; operations only observe it.
type CrawlerState int32

const (
	StateIdle CrawlerState = iota
	StateInitializing
	StateReady
	StateCrawling
	StateError
	StateClosed
)

func (s CrawlerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateCrawling:
		return "crawling"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

type stateEvent int

const (
	eventInitialize stateEvent = iota
	eventInitialized
	eventInitFailed
	eventCrawlStart
	eventCrawlDone
	eventClose
)

func (e stateEvent) String() string {
	switch e {
	case eventInitialize:
		return "initialize"
	case eventInitialized:
		return "initialized"
	case eventInitFailed:
		return "init_failed"
	case eventCrawlStart:
		return "crawl_start"
	case eventCrawlDone:
		return "crawl_done"
	case eventClose:
		return "close"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// stateTransitions is the full set of legal moves. Anything not listed is
// rejected by transition rather than silently overwritten.
var stateTransitions = map[CrawlerState]map[stateEvent]CrawlerState{
	StateIdle: {
		eventInitialize: StateInitializing,
		eventClose:      StateClosed,
	},
	StateInitializing: {
		eventInitialized: StateReady,
		eventInitFailed:  StateError,
		eventClose:       StateClosed,
	},
	StateReady: {
		eventCrawlStart: StateCrawling,
		eventClose:      StateClosed,
	},
	StateCrawling: {
		eventCrawlDone: StateReady,
		eventClose:     StateClosed,
	},
	StateError: {
		eventInitialize: StateInitializing,
		eventClose:      StateClosed,
	},
	StateClosed: {},
}

func transition(current CrawlerState, event stateEvent) (CrawlerState, error) {
	next, ok := stateTransitions[current][event]
	if !ok {
		return current, fmt.Errorf("illegal state transition: %s on %s", event, current)
	}
	return next, nil
}

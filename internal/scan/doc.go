// Package scan discovers reachable device contexts in the background.
//
// An Engine runs a Scanner on a fixed period from its own goroutine and
// publishes each result on a single-slot channel; a newer result replaces
// one the consumer has not picked up yet. A Collector turns successive
// results into found and lost notifications.
package scan

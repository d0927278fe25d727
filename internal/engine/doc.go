// Package engine binds configured message rules to host events and
// dispatches rendered chat lines when those events fire.
//
// Lifecycle:
//
//  1. Initialize resolves each rule's event name through the catalog,
//     compiles its template and appends a Binding to the event's list.
//     The host bus is subscribed at most once per event type.
//  2. When the host fires an event, Dispatch walks that event's bindings
//     in configuration order. Each binding renders its template once,
//     picks recipients from its target and hands each line to the
//     message processor.
//  3. Release drops every binding and subscription.
//
// Hot reload appends to the existing bindings; a cold Initialize clears
// them first. Callers that want a fresh rule set on reload must Release
// before Initialize.
//
// Concurrency: Initialize and Release take the write lock. Dispatch
// copies the binding list under the read lock and runs without holding
// it, synchronously on the caller's goroutine.
//
// Failure model: nothing in the engine is fatal. Unresolved names,
// unmatched braces, failed subscriptions and panics inside host calls are
// logged with a stable code and the next rule or binding proceeds.
package engine

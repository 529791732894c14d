// Package taskgraph runs named tasks in dependency order.
//
// Tasks are registered once on a Graph and never mutated afterwards. Resolve computes the
// transitive dependency closure of a goal and orders it topologically, breaking ties by
// registration order. Execute first checks the requirements of every task that may run,
// triggered ones included, and returns a ConfigurationError before any body starts. It then
// walks the order sequentially: preconditions decide whether a task is skipped and bodies run
// at most once. Triggers fire only after the goal succeeded and cascade through triggered tasks.
package taskgraph

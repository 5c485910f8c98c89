// Package domain contains the core business entities of the task tracker
// and the pure rules that operate on them: the lifecycle state registry,
// tasks and their ordered stages, stage transition rules, task status
// propagation, archival snapshots, and the notification log.
//
// Types in this package carry no persistence concerns; stores and services
// orchestrate around them.
package domain

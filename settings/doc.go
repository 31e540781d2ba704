// Package settings persists the versioned fabricsync settings record.
//
// Backends implement core.SettingsStore (FileStore, InMemoryStore and the
// sqlite backed sqlitestore.Store). Manager keeps the loaded record in memory
// and persists every mutation immediately. Coordinator turns typed tenant and
// environment change events into settings updates and subscriber
// notifications.
package settings

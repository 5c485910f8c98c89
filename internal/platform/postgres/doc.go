// Package postgres provides the PostgreSQL implementations of the storage
// interfaces defined in the internal/store package. It owns query execution,
// mapping between domain entities and database rows, and the translation of
// driver errors into the store sentinel errors.
package postgres
